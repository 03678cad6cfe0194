// Package snapshot reads the tab-delimited rebuild snapshot file shared by
// cmd/autosuggested and cmd/adminctl.
package snapshot

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/typeahead/engine/internal/builder"
)

// Load reads "phrase\tcount\tunix_seconds" rows from path, skipping blank
// and malformed lines.
func Load(path string) ([]builder.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []builder.Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			continue
		}
		count, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		unixSeconds, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, builder.Entry{
			Phrase:      fields[0],
			Count:       count,
			LastUpdated: time.Unix(unixSeconds, 0),
		})
	}
	return entries, scanner.Err()
}
