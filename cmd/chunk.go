package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/zhengshuai-xiao/xbackup/internal"
	"github.com/zhengshuai-xiao/xbackup/pkg/backup"
	"github.com/zhengshuai-xiao/xbackup/pkg/chunker"
)

func cmdChunk() *cli.Command {
	return &cli.Command{
		Name:      "chunk",
		Action:    chunkAction,
		Category:  "DEBUG",
		Usage:     "Print the chunk boundaries of a file without storing anything",
		ArgsUsage: "<FILE|->",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "avg-size",
				Value: "4M",
				Usage: "average chunk size of the buzhash chunker",
			},
		},
	}
}

func chunkAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("chunk takes exactly one file, got %d", c.NArg())
	}
	avg, err := internal.ParseSize(c.String("avg-size"))
	if err != nil {
		return err
	}
	ch, err := chunker.New(int(avg))
	if err != nil {
		return err
	}

	var src io.Reader = os.Stdin
	if name := c.Args().First(); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	w := c.App.Writer
	r := chunker.NewReader(src, ch)
	count := 0
	for {
		chunk, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		count++
		fmt.Fprintf(w, "BOUND %d size %d fp %s\n", chunk.Offset+uint64(chunk.Length), chunk.Length, backup.CalcFP(chunk.Data))
	}

	var mean uint64
	if count > 0 {
		mean = r.Offset() / uint64(count)
	}
	fmt.Fprintf(w, "%d chunks, %s total, %s average (min %s, max %s)\n", count,
		internal.FormatBytes(r.Offset()), internal.FormatBytes(mean),
		internal.FormatBytes(uint64(ch.MinSize())), internal.FormatBytes(uint64(ch.MaxSize())))
	return nil
}
