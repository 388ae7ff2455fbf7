package audio

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
)

// Fingerprint identifies a sample file's content.
type Fingerprint struct {
	MD5  string
	Size int64
}

// FingerprintFile hashes the file at path.
func FingerprintFile(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, err
	}
	defer f.Close()

	h := md5.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{MD5: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}
