package extractor

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadNameList reads one character name per line, skipping blank lines.
func ReadNameList(path string) ([]string, error) {
	names := make([]string, 0)
	err := scanLines(path, func(line string) error {
		names = append(names, line)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ReadGenderList reads "Name - Gender" lines. The split happens at the last
// hyphen so hyphenated names survive.
func ReadGenderList(path string) (map[string]string, error) {
	genders := make(map[string]string)
	lineNo := 0
	err := scanLines(path, func(line string) error {
		lineNo++
		idx := strings.LastIndex(line, "-")
		if idx < 0 {
			return fmt.Errorf("%s: line %d: expected \"Name - Gender\", got %q", path, lineNo, line)
		}
		name := strings.TrimSpace(line[:idx])
		gender := strings.TrimSpace(line[idx+1:])
		if name == "" || gender == "" {
			return fmt.Errorf("%s: line %d: empty name or gender", path, lineNo)
		}
		genders[name] = gender
		return nil
	})
	if err != nil {
		return nil, err
	}
	return genders, nil
}

func scanLines(path string, fn func(line string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open character list: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read character list: %w", err)
	}
	return nil
}
