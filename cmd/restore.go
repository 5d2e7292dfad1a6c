package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/zhengshuai-xiao/xbackup/internal"
	"github.com/zhengshuai-xiao/xbackup/pkg/backup"
	"github.com/zhengshuai-xiao/xbackup/pkg/mytar"
	"github.com/zhengshuai-xiao/xbackup/pkg/store"
)

func cmdRestore() *cli.Command {
	selfFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "manifest",
			Required: true,
			Usage:    "manifest written by backup",
		},
		&cli.StringFlag{
			Name:  "output",
			Value: "-",
			Usage: "file to restore the stream to, '-' for stdout",
		},
		&cli.StringFlag{
			Name:  "extract",
			Usage: "unpack a directory backup into this directory instead of writing the stream",
		},
	}

	return &cli.Command{
		Name:     "restore",
		Action:   restoreAction,
		Category: "BACKUP",
		Usage:    "Rebuild a backed up stream from its manifest",
		Flags:    expandFlags(selfFlags, storeFlags()),
	}
}

func restoreAction(c *cli.Context) error {
	m, err := backup.ReadManifest(c.String("manifest"))
	if err != nil {
		return err
	}
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	if dir := c.String("extract"); dir != "" {
		if err := extract(c, st, m, dir); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "restored %s (%s) into %s\n", m.Name, m.ID, dir)
		return nil
	}

	var w io.Writer = c.App.Writer
	output := c.String("output")
	if output != "-" {
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	n, err := backup.Restore(c.Context, st, m, w)
	if err != nil {
		return err
	}
	if output != "-" {
		fmt.Fprintf(c.App.Writer, "restored %s (%s) to %s, %s\n", m.Name, m.ID, output, internal.FormatBytes(uint64(n)))
	}
	return nil
}

func extract(c *cli.Context, st store.ChunkStore, m *backup.Manifest, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	pr, pw := io.Pipe()
	restoreErr := make(chan error, 1)
	go func() {
		_, err := backup.Restore(c.Context, st, m, pw)
		pw.CloseWithError(err)
		restoreErr <- err
	}()

	err := mytar.Unpack(pr, dir)
	if err == nil {
		// the tar reader stops at the end marker, let the writer finish
		_, err = io.Copy(io.Discard, pr)
	}
	pr.CloseWithError(err)

	rerr := <-restoreErr
	if err != nil {
		return err
	}
	return rerr
}
