package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"authcore"
)

// authcore-auditverify checks the hash-chain integrity of an exported audit
// chain. Input is one JSON-encoded AuditEntry per line, in sequence order,
// as produced by a JSONWriterSink or a ChainStore dump.
func main() {
	var (
		path = flag.String("in", "-", "JSONL chain export to verify; - reads stdin")
		from = flag.Uint64("from", 0, "sequence number of the first entry in the export")
		prev = flag.String("prev", "", "hex hash preceding the first entry; empty means the genesis hash")
	)
	flag.Parse()

	in := os.Stdin
	if *path != "-" {
		f, err := os.Open(*path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open export: %v\n", err)
			os.Exit(2)
		}
		defer f.Close()
		in = f
	}

	prevHash := authcore.GenesisHash()
	if *prev != "" {
		if err := prevHash.UnmarshalText([]byte(*prev)); err != nil {
			fmt.Fprintf(os.Stderr, "bad -prev hash: %v\n", err)
			os.Exit(2)
		}
	}

	entries, err := readEntries(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read export: %v\n", err)
		os.Exit(2)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "empty export")
		os.Exit(2)
	}

	if err := authcore.VerifyExported(entries, *from, prevHash); err != nil {
		var corrupt *authcore.ChainCorruptionError
		if errors.As(err, &corrupt) {
			fmt.Fprintf(os.Stderr, "CORRUPTED at seq %d\n", corrupt.Index)
		} else {
			fmt.Fprintf(os.Stderr, "verify failed: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("OK: %d entries, tail hash %s\n", len(entries), entries[len(entries)-1].Hash)
}

func readEntries(r io.Reader) ([]authcore.AuditEntry, error) {
	var entries []authcore.AuditEntry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry authcore.AuditEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
