package csvsource

import (
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
)

// Source is one loaded CSV feed: the header row plus all data records, in
// file order. Loading failures are terminal and distinct from "no rows".
type Source struct {
	Header  []string
	Records [][]string
}

// Delimiter names accepted on the command line, mirroring the usual upload
// tool vocabulary.
var delimiters = map[string]rune{
	"comma":     ',',
	"semicolon": ';',
	"colon":     ':',
	"tab":       '\t',
}

// ParseDelimiter maps a delimiter name to its rune, defaulting to comma.
func ParseDelimiter(name string) (rune, error) {
	if name == "" {
		return ',', nil
	}
	d, ok := delimiters[name]
	if !ok {
		return 0, goerr.New("unknown delimiter name", goerr.V("delimiter", name))
	}
	return d, nil
}

// Load reads and parses a CSV file. The first record is the header; records
// longer than the header are tolerated (extra cells are dropped downstream),
// shorter ones are padded with empty strings so every row addresses every
// validated column.
func Load(path, delimiterName string) (*Source, error) {
	delim, err := ParseDelimiter(delimiterName)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open input file", goerr.V("path", path))
	}
	defer f.Close()

	return Parse(f, delim)
}

// Parse reads CSV content from a reader.
func Parse(r io.Reader, delim rune) (*Source, error) {
	reader := csv.NewReader(r)
	reader.Comma = delim
	// Real-world feeds have ragged rows and sloppy quoting; be lenient
	// here and let column validation decide what is fatal.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, goerr.New("empty file: no header row found")
		}
		return nil, goerr.Wrap(err, "failed to read header row")
	}
	for i := range header {
		header[i] = trimBOM(header[i])
	}

	src := &Source{Header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read record",
				goerr.V("line", len(src.Records)+2))
		}
		if len(record) < len(header) {
			padded := make([]string, len(header))
			copy(padded, record)
			record = padded
		}
		src.Records = append(src.Records, record)
	}

	return src, nil
}

// trimBOM strips a UTF-8 byte order mark from the first header cell.
func trimBOM(s string) string {
	const bom = "\uFEFF"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}
