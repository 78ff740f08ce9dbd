package suggest

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// LoadSeedFile reads tab-separated "text<TAB>weight" lines into the
// provider. Lines without a weight column default to weight 1; blank lines
// and lines starting with '#' are skipped. Returns the number of entries
// loaded.
func (p *TrieProvider) LoadSeedFile(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening seed file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Errorf("closing seed file: %v", err)
		}
	}()

	count := 0
	lineNo := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		text := line
		weight := 1
		if idx := strings.IndexByte(line, '\t'); idx >= 0 {
			text = line[:idx]
			w, err := strconv.Atoi(strings.TrimSpace(line[idx+1:]))
			if err != nil {
				log.Warnf("seed line %d: bad weight %q, using 1", lineNo, line[idx+1:])
			} else {
				weight = w
			}
		}
		if text == "" {
			continue
		}

		p.Add(Entry{Text: text, Weight: weight})
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("reading seed file: %w", err)
	}

	log.Debugf("Loaded %d entries from seed file: %s", count, path)
	return count, nil
}
