package registry

import (
	"bufio"
	"strings"
)

// ArgumentField is one declared field of a module's argument struct,
// parsed from a repeated "-- Argument: name: type" header line. The
// fields are recorded on the Module; the CLI does not check a run's
// argument against them.
type ArgumentField struct {
	Name string
	Type string
}

// Argument is the module's declared argument shape: a raw declaration
// string (kept for backward-compatible display) plus the structured
// fields parsed out of repeated Argument header lines, if any.
type Argument struct {
	Raw    string
	Fields []ArgumentField
}

// Metadata is what's extracted from a module's header comments.
type Metadata struct {
	Description string
	Version     string
	Argument    Argument
}

const headerPrefix = "-- "

// ParseMetadata extracts declared metadata from a module's comment-prefixed
// header lines of the form "-- Key: value". Recognizes Description,
// Version, and (possibly repeated) Argument.
func ParseMetadata(code string) (Metadata, error) {
	var meta Metadata
	var argRaw []string

	scanner := bufio.NewScanner(strings.NewReader(code))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "--") {
			// Header block ends at the first non-comment line.
			break
		}

		body := strings.TrimSpace(strings.TrimPrefix(trimmed, "--"))
		idx := strings.Index(body, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(body[:idx])
		value := strings.TrimSpace(body[idx+1:])

		switch strings.ToLower(key) {
		case "description":
			meta.Description = value
		case "version":
			meta.Version = value
		case "argument":
			argRaw = append(argRaw, value)
			meta.Argument.Fields = append(meta.Argument.Fields, parseArgumentField(value))
		}
	}

	meta.Argument.Raw = strings.Join(argRaw, ", ")
	return meta, scanner.Err()
}

// parseArgumentField splits a "name: type" declaration; a bare name with
// no type annotation defaults to "string".
func parseArgumentField(decl string) ArgumentField {
	if idx := strings.Index(decl, ":"); idx >= 0 {
		return ArgumentField{
			Name: strings.TrimSpace(decl[:idx]),
			Type: strings.TrimSpace(decl[idx+1:]),
		}
	}
	return ArgumentField{Name: strings.TrimSpace(decl), Type: "string"}
}
