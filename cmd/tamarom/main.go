package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/urfave/cli/v2"

	"github.com/bodgit/tamarom"
	"github.com/bodgit/tamarom/sprite"
	"github.com/bodgit/tamarom/text"
)

const defaultDB = "tamarom.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version, V",
		Usage: "print the version",
	}
}

func newLogger(debug bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	}
	return log.NewWithConfig(cfg)
}

// editorFor loads the image named by the first argument and settles the
// device profile, from the flag or by detection against the catalog.
func editorFor(c *cli.Context) (*tamarom.Editor, int, error) {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger := newLogger(c.Bool("debug"))

	profile, explicit := tamarom.ProfileByName(c.String("profile"))
	if !explicit && c.String("profile") != "" {
		return nil, 0, fmt.Errorf("unknown profile %q", c.String("profile"))
	}
	e := tamarom.New(profile, logger)
	if err := e.Load(c.Args().First()); err != nil {
		return nil, 0, err
	}
	buf, _ := e.Buffer()
	size := buf.Len()

	if !explicit {
		db, err := tamarom.OpenROMDB(c.String("db"))
		if err != nil {
			return nil, 0, err
		}
		defer db.Close()

		detected, err := e.Detect(context.Background(), db)
		if err != nil {
			return nil, 0, err
		}
		logger.Info("Detected device", log.String("profile", detected.Name))

		e = tamarom.New(detected, logger)
		if err := e.Load(c.Args().First()); err != nil {
			return nil, 0, err
		}
	}

	return e, size, nil
}

func replaceMap(c *cli.Context) (*text.ReplaceTable, error) {
	if path := c.String("map"); path != "" {
		return tamarom.LoadReplaceMap(path)
	}
	return text.NewReplaceTable(nil), nil
}

func alphaMode(c *cli.Context) sprite.AlphaMode {
	switch c.String("alpha") {
	case "normal":
		return sprite.AlphaNormal
	case "inverted":
		return sprite.AlphaInverted
	default:
		return sprite.AlphaAuto
	}
}

func save(c *cli.Context, e *tamarom.Editor, size int) error {
	out := c.String("out")
	if out == "" {
		out = c.Args().First()
	}
	return e.Save(out, size)
}

func main() {
	app := cli.NewApp()

	app.Name = "tamarom"
	app.Usage = "Toy device ROM inspection and editing utility"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"TAMAROM_DB"},
			Value:   defaultDB,
			Usage:   "path to ROM catalog database",
		},
		&cli.StringFlag{
			Name:  "profile",
			Usage: "device profile (d3, digivice); detected when empty",
		},
		&cli.StringFlag{
			Name:  "map",
			Usage: "path to tag replacement map",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "increase verbosity",
		},
	}

	outFlag := &cli.StringFlag{
		Name:  "out",
		Usage: "write the modified image here instead of in place",
	}
	dryRunFlag := &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "report what would change without writing",
	}

	app.Commands = []*cli.Command{
		{
			Name:      "info",
			Usage:     "Identify an image and summarise its contents",
			ArgsUsage: "IMAGE",
			Action: func(c *cli.Context) error {
				e, size, err := editorFor(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				ctx := context.Background()
				fmt.Printf("profile:  %s (%s)\n", e.Profile().Name, e.Profile().Label)
				fmt.Printf("size:     %d bytes\n", size)

				buf, _ := e.Buffer()
				fmt.Printf("crc32:    %s\n", tamarom.Checksum(buf.Bytes()))

				if found, err := e.Archives(ctx); err == nil {
					fmt.Printf("archives: %d\n", len(found))
				}
				if pkg, err := e.SpritePackage(ctx); err == nil {
					fmt.Printf("sprites:  %d images, %d tiles, package at 0x%X\n",
						len(pkg.Images), len(pkg.Sprites), pkg.Base)
				}

				return nil
			},
		},
		{
			Name:      "export-names",
			Usage:     "Export character names to stdout",
			ArgsUsage: "IMAGE",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "npc", Usage: "only non-player character names"},
			},
			Action: func(c *cli.Context) error {
				e, _, err := editorFor(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				table, err := replaceMap(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				names, err := e.Names(context.Background(), table)
				if c.Bool("npc") {
					names, err = e.NPCNames(context.Background(), table)
				}
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				for _, n := range names {
					fmt.Printf("%s\t%d\t%s\n", n.Archive, n.Index, n.Display)
				}
				return nil
			},
		},
		{
			Name:      "import-names",
			Usage:     "Import character names from a file of archive, index, name lines",
			ArgsUsage: "IMAGE NAMES",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "padded", Usage: "pad shorter names instead of requiring an exact fit"},
				outFlag,
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				e, size, err := editorFor(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				table, err := replaceMap(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				if err := importNames(e, c.Args().Get(1), table, c.Bool("padded")); err != nil {
					return cli.NewExitError(err, 1)
				}

				if err := save(c, e, size); err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			},
		},
		{
			Name:      "export-data",
			Usage:     "Export the partner stats table to stdout",
			ArgsUsage: "IMAGE",
			Action: func(c *cli.Context) error {
				e, _, err := editorFor(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				rows, err := e.PartnerRows()
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				fmt.Println("slot\tname_index\tstage\tpower\tunknown1\tunknown2")
				for _, r := range rows {
					fmt.Printf("%d\t%d\t%d\t%d\t%d\t%d\n",
						r.Slot, r.NameIndex, r.Stage, r.Power, r.Unknown1, r.Unknown2)
				}
				return nil
			},
		},
		{
			Name:      "import-data",
			Usage:     "Import the partner stats table from a file in export-data format",
			ArgsUsage: "IMAGE DATA",
			Flags:     []cli.Flag{outFlag},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				e, size, err := editorFor(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				rows, err := readPartnerRows(c.Args().Get(1))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if err := e.WritePartnerRows(rows); err != nil {
					return cli.NewExitError(err, 1)
				}

				if err := save(c, e, size); err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			},
		},
		{
			Name:      "export-sprites",
			Usage:     "Compose sprites and export them as PNG files",
			ArgsUsage: "IMAGE DIRECTORY",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "start", Usage: "first image index"},
				&cli.IntFlag{Name: "end", Usage: "image index to stop before"},
				&cli.StringFlag{Name: "banks", Value: "0", Usage: "palette banks, e.g. 0-15 or 0,1,2"},
				&cli.StringFlag{Name: "alpha", Value: "auto", Usage: "alpha mode: auto, normal or inverted"},
				&cli.BoolFlag{Name: "attr-bank", Usage: "use each sprite's own palette bank"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				e, _, err := editorFor(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				banks, err := parseBanks(c.String("banks"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				err = e.ExportSprites(context.Background(), c.Args().Get(1), tamarom.SpriteOptions{
					Start:       c.Int("start"),
					End:         c.Int("end"),
					Banks:       banks,
					Alpha:       alphaMode(c),
					UseAttrBank: c.Bool("attr-bank"),
				})
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			},
		},
		{
			Name:      "import-sprites",
			Usage:     "Replace sprites from PNG files named {image}_{sub}_{bank}.png",
			ArgsUsage: "IMAGE DIRECTORY",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "alpha", Value: "auto", Usage: "alpha mode: auto, normal or inverted"},
				&cli.BoolFlag{Name: "attr-bank", Usage: "use each sprite's own palette bank"},
				dryRunFlag,
				outFlag,
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				e, size, err := editorFor(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				summary, err := e.ImportSprites(context.Background(), c.Args().Get(1), tamarom.SpriteOptions{
					Alpha:       alphaMode(c),
					UseAttrBank: c.Bool("attr-bank"),
					DryRun:      c.Bool("dry-run"),
				})
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				fmt.Println(summary)

				if c.Bool("dry-run") {
					return nil
				}
				if err := save(c, e, size); err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			},
		},
		{
			Name:      "update-palette",
			Usage:     "Write palette banks from PNG files named {image}_{sub}_{bank}.png",
			ArgsUsage: "IMAGE DIRECTORY",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "alpha", Value: "auto", Usage: "alpha mode: auto, normal or inverted"},
				&cli.BoolFlag{Name: "set-sprite-bank", Usage: "point the subimage's sprites at the written bank"},
				&cli.BoolFlag{Name: "auto-bank", Usage: "pick a free bank instead of the filename bank"},
				dryRunFlag,
				outFlag,
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				e, size, err := editorFor(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				summary, err := e.UpdatePalettes(context.Background(), c.Args().Get(1), tamarom.PaletteOptions{
					Alpha:         alphaMode(c),
					SetSpriteBank: c.Bool("set-sprite-bank"),
					AutoFreeBank:  c.Bool("auto-bank"),
					DryRun:        c.Bool("dry-run"),
				})
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				fmt.Println(summary)

				if c.Bool("dry-run") {
					return nil
				}
				if err := save(c, e, size); err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			},
		},
		{
			Name:      "export-sounds",
			Usage:     "Decode all sounds to WAV files",
			ArgsUsage: "IMAGE DIRECTORY",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "chunks", Usage: "treat the image as using A18 chunks rather than SPF2ALP blocks"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				e, _, err := editorFor(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				var n int
				if c.Bool("chunks") {
					n, err = e.ExportChunks(context.Background(), c.Args().Get(1))
				} else {
					n, err = e.ExportBlocks(context.Background(), c.Args().Get(1))
				}
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				fmt.Printf("%d sounds exported\n", n)
				return nil
			},
		},
		{
			Name:      "import-sounds",
			Usage:     "Encode WAV files back into the image's sound slots",
			ArgsUsage: "IMAGE DIRECTORY",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "chunks", Usage: "treat the image as using A18 chunks rather than SPF2ALP blocks"},
				&cli.Float64Flag{Name: "target-db", Value: -12, Usage: "RMS normalisation target in dBFS"},
				dryRunFlag,
				outFlag,
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				e, size, err := editorFor(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				opts := tamarom.SoundOptions{
					TargetDB: c.Float64("target-db"),
					DryRun:   c.Bool("dry-run"),
				}
				var summary fmt.Stringer
				if c.Bool("chunks") {
					summary, err = e.ImportChunks(context.Background(), c.Args().Get(1), opts)
				} else {
					summary, err = e.ImportBlocks(context.Background(), c.Args().Get(1), opts)
				}
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				fmt.Println(summary)

				if c.Bool("dry-run") {
					return nil
				}
				if err := save(c, e, size); err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			},
		},
		{
			Name:      "db-add",
			Usage:     "Record an image's checksum in the ROM catalog",
			ArgsUsage: "IMAGE PROFILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				profile, ok := tamarom.ProfileByName(c.Args().Get(1))
				if !ok {
					return cli.NewExitError(fmt.Errorf("unknown profile %q", c.Args().Get(1)), 1)
				}

				crc, err := tamarom.ChecksumFile(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				db, err := tamarom.OpenROMDB(c.String("db"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer db.Close()

				if err := db.Add(crc, profile.Name, profile.Label); err != nil {
					return cli.NewExitError(err, 1)
				}
				fmt.Printf("%s -> %s\n", crc, profile.Name)
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		newLogger(false).Fatal(err.Error())
	}
}

func parseBanks(s string) ([]int, error) {
	var banks []int
	for _, part := range strings.Split(s, ",") {
		if lo, hi, found := strings.Cut(part, "-"); found {
			a, err := strconv.Atoi(lo)
			if err != nil {
				return nil, err
			}
			b, err := strconv.Atoi(hi)
			if err != nil {
				return nil, err
			}
			for ; a <= b; a++ {
				banks = append(banks, a)
			}
			continue
		}
		b, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}
	return banks, nil
}

// importNames applies archive, index, name lines, tab separated as
// export-names emits them. Per-name failures are reported and skipped.
func importNames(e *tamarom.Editor, path string, table *text.ReplaceTable, padded bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := context.Background()
	s := bufio.NewScanner(f)
	for s.Scan() {
		fields := strings.SplitN(s.Text(), "\t", 3)
		if len(fields) < 3 {
			continue
		}
		si, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}

		if padded {
			err = e.RenamePadded(ctx, fields[0], si, fields[2], table)
		} else {
			err = e.RenameExact(ctx, fields[0], si, fields[2], table)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s index %d: %v\n", fields[0], si, err)
		}
	}
	return s.Err()
}

// readPartnerRows parses the export-data format back into rows.
func readPartnerRows(path string) ([]tamarom.Partner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []tamarom.Partner
	s := bufio.NewScanner(f)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) < 6 {
			continue
		}

		var vals [6]int
		ok := true
		for i, fld := range fields[:6] {
			v, err := strconv.Atoi(fld)
			if err != nil {
				ok = false // header line
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}

		rows = append(rows, tamarom.Partner{
			Slot:      vals[0],
			NameIndex: vals[1],
			Stage:     vals[2],
			Power:     vals[3],
			Unknown1:  vals[4],
			Unknown2:  vals[5],
		})
	}
	return rows, s.Err()
}
