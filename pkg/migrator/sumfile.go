package migrator

import (
	"bufio"
	"crypto/md5" // nolint: gosec
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/checksum"
	"go.uber.org/multierr"
)

const totalPrefix = "md5:"

type (
	// SumFile is an integrity manifest for a migration directory. Each entry
	// holds the same hash the ledger records for the file, so the manifest can
	// be checked without a database. The total hash covers every entry in
	// order, which makes reordering or removal visible too.
	SumFile struct {
		entries   []sumEntry
		TotalHash string
	}

	sumEntry struct {
		Name string
		Hash string
	}
)

// NewSumFile creates an empty SumFile.
func NewSumFile() *SumFile {
	return &SumFile{}
}

// SumDir builds a SumFile for the files of dir, in version order.
func SumDir(dir *MigrationDir) *SumFile {
	s := NewSumFile()
	for _, f := range dir.Files {
		s.AddFile(f.Name, f.Content)
	}

	return s
}

// LoadSumFile reads a SumFile written by WriteTo.
//
// Expected format:
//
//	md5:<total hash>
//	V1__init.sql <hash>
//	V2__seed.sql <hash>
func LoadSumFile(r io.Reader) (*SumFile, error) {
	scanner := bufio.NewScanner(r)
	sum := NewSumFile()

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "failed to read total hash line")
		}

		return sum, nil
	}

	total := strings.TrimSpace(scanner.Text())
	if total == "" {
		return sum, nil
	}

	if !strings.HasPrefix(total, totalPrefix) {
		return nil, errors.Errorf("invalid total hash format: %s", total)
	}
	sum.TotalHash = total

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, errors.Errorf("invalid file entry format: %s", line)
		}

		if _, err := hex.DecodeString(parts[1]); err != nil || len(parts[1]) != checksum.Size {
			return nil, errors.Errorf("invalid hash format for file %s: %s", parts[0], parts[1])
		}

		sum.entries = append(sum.entries, sumEntry{Name: parts[0], Hash: parts[1]})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading sum file")
	}

	return sum, nil
}

// AddFile records name with the hash of content.
func (s *SumFile) AddFile(name, content string) {
	s.entries = append(s.entries, sumEntry{Name: name, Hash: checksum.Hash(content)})
	s.computeTotalHash()
}

// Files returns the number of entries.
func (s *SumFile) Files() int {
	return len(s.entries)
}

// Hash returns the recorded hash for name.
func (s *SumFile) Hash(name string) (string, bool) {
	for _, e := range s.entries {
		if e.Name == name {
			return e.Hash, true
		}
	}

	return "", false
}

// WriteTo writes the manifest. It implements io.WriterTo.
func (s *SumFile) WriteTo(w io.Writer) (int64, error) {
	var total int64

	s.computeTotalHash()
	if s.TotalHash == "" {
		return 0, nil
	}

	n, err := fmt.Fprintf(w, "%s\n", s.TotalHash)
	total += int64(n)
	if err != nil {
		return total, err
	}

	for _, e := range s.entries {
		n, err := fmt.Fprintf(w, "%s %s\n", e.Name, e.Hash)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// Verify compares the manifest against dir and reports every file that was
// added, removed or modified since it was written.
func (s *SumFile) Verify(dir *MigrationDir) error {
	current := SumDir(dir)

	var err error
	for _, e := range s.entries {
		h, ok := current.Hash(e.Name)
		switch {
		case !ok:
			err = multierr.Append(err, errors.Errorf("%s: missing from migration directory", e.Name))
		case h != e.Hash:
			err = multierr.Append(err, errors.Errorf("%s: modified (recorded %s, found %s)", e.Name, e.Hash, h))
		}
	}

	for _, e := range current.entries {
		if _, ok := s.Hash(e.Name); !ok {
			err = multierr.Append(err, errors.Errorf("%s: not recorded in sum file", e.Name))
		}
	}

	if err == nil && current.TotalHash != s.TotalHash {
		err = errors.Errorf("total hash mismatch (recorded %s, found %s)", s.TotalHash, current.TotalHash)
	}

	return err
}

func (s *SumFile) computeTotalHash() {
	if len(s.entries) == 0 {
		s.TotalHash = ""
		return
	}

	h := md5.New() // nolint: gosec
	for _, e := range s.entries {
		_, _ = io.WriteString(h, e.Name+" "+e.Hash+"\n")
	}

	s.TotalHash = totalPrefix + hex.EncodeToString(h.Sum(nil))
}
