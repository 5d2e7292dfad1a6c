package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli/v2"
	"github.com/zhengshuai-xiao/xbackup/pkg/backup"
)

func cmdVerify() *cli.Command {
	selfFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "manifest",
			Required: true,
			Usage:    "manifest written by backup",
		},
		&cli.IntFlag{
			Name:  "workers",
			Value: runtime.NumCPU(),
			Usage: "number of chunks checked in parallel",
		},
	}

	return &cli.Command{
		Name:     "verify",
		Action:   verifyAction,
		Category: "BACKUP",
		Usage:    "Check that every chunk of a backup is present and intact",
		Flags:    expandFlags(selfFlags, storeFlags()),
	}
}

func verifyAction(c *cli.Context) error {
	m, err := backup.ReadManifest(c.String("manifest"))
	if err != nil {
		return err
	}
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := backup.Verify(c.Context, st, m, c.Int("workers"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "verified %s (%s): %d chunks ok\n", m.Name, m.ID, n)
	return nil
}
