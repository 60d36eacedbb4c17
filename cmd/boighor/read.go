package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/boighor/internal/bookmarks"
	"github.com/jackzampolin/boighor/internal/document"
	"github.com/jackzampolin/boighor/internal/viewer"
)

var (
	readWidth  float64
	readHeight float64
)

var readCmd = &cobra.Command{
	Use:   "read <pdf-or-url>",
	Short: "Read a PDF in the terminal without a server",
	Long: `Open a PDF in a local viewer session and drive it from the prompt.

Bookmarks are kept in ~/.boighor/bookmarks.yaml, keyed by the absolute path
or URL, so reopening a file resumes at its bookmark.

Commands:
  n, next          next page or spread
  p, prev          previous page or spread
  +, -             zoom in or out
  f, fit           fit to the viewport
  b, bookmark      toggle the bookmark on the current page
  size <w> <h>     resize the viewport
  save <slot> <f>  write the primary or secondary surface to a PNG
  q, quit          close the document`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}
		store, err := bookmarks.OpenFileStore(h.BookmarksPath())
		if err != nil {
			return err
		}

		target := args[0]
		if !strings.Contains(target, "://") {
			if target, err = filepath.Abs(target); err != nil {
				return err
			}
		}

		sess := viewer.NewSession(viewer.Config{
			Loader:    document.NewLoader(document.LoaderConfig{}),
			Bookmarks: bookmarks.New(store),
			Width:     readWidth,
			Height:    readHeight,
			Logger:    newLogger(),
		})
		defer sess.Close()

		if err := sess.Open(ctx, target, target); err != nil {
			return err
		}
		return repl(ctx, sess, os.Stdin, os.Stdout)
	},
}

// repl reads commands from in until quit or EOF, printing the state after
// each one.
func repl(ctx context.Context, sess *viewer.Session, in io.Reader, out io.Writer) error {
	printState(ctx, sess, out)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "n", "next":
			err = sess.GoToNextPage()
		case "p", "prev":
			err = sess.GoToPreviousPage()
		case "+":
			err = sess.ZoomIn()
		case "-":
			err = sess.ZoomOut()
		case "f", "fit":
			err = sess.FitToScreen()
		case "b", "bookmark":
			err = sess.ToggleBookmark(ctx)
		case "size":
			err = resizeCmd(sess, fields[1:])
		case "save":
			err = saveSurface(ctx, sess, fields[1:], out)
		case "q", "quit":
			return nil
		default:
			err = fmt.Errorf("unknown command %q", fields[0])
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printState(ctx, sess, out)
	}
}

func resizeCmd(sess *viewer.Session, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: size <width> <height>")
	}
	w, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return err
	}
	h, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return err
	}
	return sess.Resize(w, h)
}

func saveSurface(ctx context.Context, sess *viewer.Session, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errors.New("usage: save <primary|secondary> <file.png>")
	}
	slot, err := viewer.ParseSlot(args[0])
	if err != nil {
		return err
	}
	if err := sess.WaitIdle(ctx); err != nil {
		return err
	}
	canvas, ok := sess.Surface(slot).(*viewer.Canvas)
	if !ok {
		return fmt.Errorf("%s surface cannot be saved", slot)
	}
	img, page, _ := canvas.Snapshot()
	if img == nil {
		return fmt.Errorf("%s surface is empty", slot)
	}

	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote page %d to %s\n", page, args[1])
	return nil
}

func printState(ctx context.Context, sess *viewer.Session, out io.Writer) {
	if err := sess.WaitIdle(ctx); err != nil {
		return
	}
	st := sess.State()
	bookmark := ""
	if st.IsBookmarked {
		bookmark = "  [bookmarked]"
	}
	fmt.Fprintf(out, "%s  %d%%  %s%s\n", st.Label, st.ZoomPercent, st.Layout, bookmark)
	if st.ErrorMessage != "" {
		fmt.Fprintf(out, "  %s\n", st.ErrorMessage)
	}
}

func init() {
	readCmd.Flags().Float64Var(&readWidth, "width", 1280, "Viewport width in pixels")
	readCmd.Flags().Float64Var(&readHeight, "height", 900, "Viewport height in pixels")

	rootCmd.AddCommand(readCmd)
}
