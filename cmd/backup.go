package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"github.com/zhengshuai-xiao/xbackup/internal"
	"github.com/zhengshuai-xiao/xbackup/pkg/backup"
	"github.com/zhengshuai-xiao/xbackup/pkg/mytar"
)

func cmdBackup() *cli.Command {
	def := backup.NewConfig()
	selfFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "name of the backup, defaults to the base name of the source",
		},
		&cli.StringFlag{
			Name:  "chunk-method",
			Value: def.ChunkMethod,
			Usage: "chunking algorithm and size: buzhash:<avg size> or fixed:<size>",
		},
		&cli.IntFlag{
			Name:  "workers",
			Value: def.Workers,
			Usage: "number of goroutines hashing and storing chunks",
		},
		&cli.StringFlag{
			Name:  "manifest",
			Usage: "where to write the manifest, defaults to <name>.manifest.json",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "write prometheus metrics in text format to this file when done",
		},
		&cli.BoolFlag{
			Name:    "background",
			Aliases: []string{"d"},
			Usage:   "run in background, logging to --logdir (default ~/.xbackup)",
		},
	}

	return &cli.Command{
		Name:      "backup",
		Action:    backupAction,
		Category:  "BACKUP",
		Usage:     "Back up a file, a directory or stdin",
		ArgsUsage: "<PATH|->",
		Description: `
			The source is cut into content defined chunks, chunks that are not in the
			store yet are uploaded, and a manifest listing the chunks is written.
			Directories are backed up as a tar stream.

			Examples:
			$ xbackup backup --repo /backup/repo /etc
			$ pg_dump mydb | xbackup backup --name mydb --store s3 --bucket dumps -`,
		Flags: expandFlags(selfFlags, storeFlags()),
	}
}

// openSource returns a reader over src. Directories are packed on the fly.
func openSource(src string) (io.ReadCloser, error) {
	if src == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source '%s': %w", src, err)
	}
	if !info.IsDir() {
		return os.Open(src)
	}

	pr, pw := io.Pipe()
	go func() {
		logger.Debugf("starting to pack directory '%s'", src)
		pw.CloseWithError(mytar.Pack(src, pw))
	}()
	return pr, nil
}

func backupAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("backup takes exactly one source, got %d", c.NArg())
	}
	if shouldExit, err := handleBackgroundMode(c); err != nil || shouldExit {
		return err
	}

	src := c.Args().First()
	name := c.String("name")
	if name == "" {
		name = "stdin"
		if src != "-" {
			name = filepath.Base(filepath.Clean(src))
		}
	}

	conf := backup.NewConfig()
	conf.ChunkMethod = c.String("chunk-method")
	conf.Workers = c.Int("workers")

	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	session, err := backup.NewSession(conf, st)
	if err != nil {
		return err
	}

	r, err := openSource(src)
	if err != nil {
		return err
	}
	defer r.Close()

	m, err := session.Backup(c.Context, name, r)
	if err != nil {
		return err
	}

	path := c.String("manifest")
	if path == "" {
		path = name + ".manifest.json"
	}
	if err := backup.WriteManifest(path, m); err != nil {
		return err
	}
	if metricsFile := c.String("metrics-file"); metricsFile != "" {
		if err := backup.WriteMetrics(metricsFile); err != nil {
			logger.Warnf("%v", err)
		}
	}

	fmt.Fprintf(c.App.Writer, "backup %s (%s): %s in %d chunks, %s new, manifest %s\n",
		m.Name, m.ID, internal.FormatBytes(m.Size), len(m.Entries), internal.FormatBytes(m.Stored), path)
	return nil
}
