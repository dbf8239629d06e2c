package tamarom

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// Checksum returns the uppercase hex IEEE CRC32 of an image, the key the
// ROM catalog stores.
func Checksum(b []byte) string {
	return fmt.Sprintf("%.*X", crc32.Size<<1, crc32.ChecksumIEEE(b))
}

// ChecksumFile checksums an image on disk without loading it whole.
func ChecksumFile(file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	if _, err = io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%.*X", crc32.Size<<1, h.Sum(nil)), nil
}
