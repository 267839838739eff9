// Command paperbackup-demo exercises a full backup/recover round trip
// end to end: it packages a directory, encrypts and chunks it into paper
// frames, renders those frames as fallback z-base-32 text, parses that
// text back, and recovers the original files into an output directory.
//
// This is a thin ambient-stack example, not the wizard CLI (out of scope
// per spec.md section 1): it takes a handful of flags and logs what it
// did, the way cmd/rubin-consensus-cli and cmd/rubin-node do, rather than
// prompting interactively or driving a QR renderer.
package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"ethernity.dev/core/fallback"
	"ethernity.dev/core/frame"
	"ethernity.dev/core/paperbackup"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("paperbackup-demo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	inputDir := fs.String("in", "", "directory to back up (required)")
	outputDir := fs.String("out", "", "directory to recover files into (required)")
	passphrase := fs.String("passphrase", "", "passphrase to use; a BIP-39 mnemonic is generated if empty")
	sealed := fs.Bool("sealed", false, "omit the Ed25519 signing seed from the manifest")
	threshold := fs.Int("shard-threshold", 0, "Shamir threshold for the passphrase (0 disables sharding)")
	shareCount := fs.Int("shard-count", 0, "Shamir share count for the passphrase")
	chunkSize := fs.Int("chunk-size", paperbackup.DefaultChunkSize, "bytes of ciphertext per MAIN frame")
	rescueMode := fs.Bool("rescue", false, "tolerate a missing or invalid AUTH frame on recovery")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inputDir == "" || *outputDir == "" {
		fmt.Fprintln(stderr, "both -in and -out are required")
		fs.Usage()
		return 2
	}

	logger := log.New(stdout, "", log.LstdFlags)

	files, err := readInputDir(*inputDir)
	if err != nil {
		logger.Printf("read input directory: %v", err)
		return 1
	}

	plan := paperbackup.DocumentPlan{
		Sealed:          *sealed,
		SigningSeedMode: paperbackup.Embedded,
		ChunkSize:       *chunkSize,
	}
	if *threshold > 0 {
		plan.PassphraseSharding = &paperbackup.ShardingConfig{Threshold: *threshold, ShareCount: *shareCount}
	}

	result, err := paperbackup.Backup(plan, files, *passphrase, float64(time.Now().Unix()))
	if err != nil {
		logger.Printf("backup: %v", err)
		return 1
	}
	logger.Printf("packaged %d file(s) into %d MAIN frame(s), doc_id=%x", len(files), len(result.MainFrames), result.DocID)
	if *passphrase == "" {
		logger.Printf("generated passphrase: %s", result.UsedPassphrase)
	}

	allFrames := append([]frame.Frame{result.AuthFrame}, result.MainFrames...)
	allFrames = append(allFrames, result.PassphraseShardFrames...)

	candidates, err := renderAndReparse(allFrames)
	if err != nil {
		logger.Printf("fallback text round trip: %v", err)
		return 1
	}
	logger.Printf("rendered and re-parsed %d frame(s) as fallback text", len(candidates))

	rec, err := paperbackup.RecoverFromCandidates(candidates, *passphrase, *rescueMode)
	if err != nil {
		logger.Printf("recover: %v", err)
		return 1
	}
	logger.Printf("recovered %d file(s), auth_status=%s", len(rec.Files), rec.AuthStatus)

	if err := writeOutputDir(*outputDir, rec.Files); err != nil {
		logger.Printf("write output directory: %v", err)
		return 1
	}
	return 0
}

// readInputDir walks dir and loads every regular file beneath it into a
// paperbackup.InputFile, using its slash-separated path relative to dir.
func readInputDir(dir string) ([]paperbackup.InputFile, error) {
	var files []paperbackup.InputFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		mtime := info.ModTime().Unix()
		files = append(files, paperbackup.InputFile{
			RelativePath: filepath.ToSlash(rel),
			Data:         data,
			Mtime:        &mtime,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func writeOutputDir(dir string, files []paperbackup.RecoveredFile) error {
	for _, f := range files {
		dest := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, f.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// renderAndReparse stands in for a paper round trip: every frame is
// rendered as fallback z-base-32 text (as it would be printed on paper)
// and immediately parsed back into candidate bytes, proving the demo
// exercises the same decode path a real recovery would.
func renderAndReparse(frames []frame.Frame) ([][]byte, error) {
	candidates := make([][]byte, 0, len(frames))
	for _, f := range frames {
		encoded, err := frame.Encode(f, false)
		if err != nil {
			return nil, err
		}
		lines, err := fallback.EncodeLines(encoded, 8, 64, 0)
		if err != nil {
			return nil, err
		}
		decoded, err := fallback.DecodeLines(lines)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, decoded)
	}
	return candidates, nil
}
