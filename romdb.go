package tamarom

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ROMDB is a small catalog mapping image checksums to device profiles,
// so the CLI can identify a dump without being told what it is. Dumps of
// the same device differ by region and revision, hence a database rather
// than two hardcoded checksums.
type ROMDB struct {
	db *sql.DB
}

// OpenROMDB opens or creates the catalog.
func OpenROMDB(file string) (*ROMDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS rom (id INTEGER PRIMARY KEY NOT NULL, crc TEXT NOT NULL UNIQUE, profile TEXT NOT NULL, label TEXT)"); err != nil {
		return nil, err
	}

	return &ROMDB{
		db: db,
	}, nil
}

func (db *ROMDB) Close() error {
	return db.db.Close()
}

// Add records a checksum as belonging to a profile, replacing any earlier
// row for the same checksum.
func (db *ROMDB) Add(crc, profile, label string) error {
	_, err := db.db.Exec("INSERT OR REPLACE INTO rom (crc, profile, label) VALUES (?, ?, ?)", crc, profile, label)
	return err
}

// FindProfileByCRC returns the profile name recorded for a checksum, or
// empty when the catalog has never seen it.
func (db *ROMDB) FindProfileByCRC(crc string) (string, error) {
	var profile string
	if err := db.db.QueryRow("SELECT profile FROM rom WHERE crc = ?", crc).Scan(&profile); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return profile, nil
}

// Detect identifies a loaded image: first by checksum against the
// catalog, then by which profile's locator settings find a sprite
// package. db may be nil to skip the catalog.
func (e *Editor) Detect(ctx context.Context, db *ROMDB) (Profile, error) {
	if e.buf == nil {
		return Profile{}, ErrNoImage
	}

	if db != nil {
		name, err := db.FindProfileByCRC(Checksum(e.buf.Bytes()))
		if err != nil {
			return Profile{}, err
		}
		if p, ok := ProfileByName(name); ok {
			return p, nil
		}
	}

	// the devices keep their name archives at family specific offsets,
	// which separates the two dumps where the locator alone cannot
	for _, p := range Profiles() {
		probe := New(p, e.logger)
		probe.LoadBytes(e.buf.Bytes())
		if _, err := probe.NameArchives(ctx); err == nil {
			return p, nil
		} else if ctx.Err() != nil {
			return Profile{}, ctx.Err()
		}
	}
	return Profile{}, fmt.Errorf("tamarom: unable to identify image")
}
