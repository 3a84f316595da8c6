// Command unrar5j extracts RAR5 archives: point it at one or more
// archive paths, or a directory in -batch mode, and it walks each
// archive's block chain, decompresses every file block, and writes the
// result under -o.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cheggaaa/pb/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saracen/walker"

	"github.com/RealBurst/unrar5j/blockformat"
	"github.com/RealBurst/unrar5j/rardecode"
	"github.com/RealBurst/unrar5j/rarfs"
)

var (
	filesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unrar5j_files_decoded_total",
		Help: "Total number of files successfully decoded.",
	})
	filesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unrar5j_files_failed_total",
		Help: "Total number of files that failed to decode, by error kind.",
	}, []string{"kind"})
	bytesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unrar5j_bytes_decoded_total",
		Help: "Total decompressed bytes written.",
	})
)

func main() {
	var (
		outDir      = flag.String("o", ".", "extraction output directory")
		listOnly    = flag.Bool("list", false, "list archive contents without extracting")
		batch       = flag.Bool("batch", false, "treat arguments as directories and extract every archive found within")
		include     = flag.String("include", "", "doublestar glob: only extract members matching this pattern")
		exclude     = flag.String("exclude", "", "doublestar glob: skip members matching this pattern")
		metricsAddr = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Error("metrics server exited", "err", http.ListenAndServe(*metricsAddr, mux))
		}()
	}

	archives := flag.Args()
	if *batch {
		var found []string
		for _, dir := range archives {
			err := walker.Walk(dir, func(path string, info os.FileInfo) error {
				if !info.IsDir() && filepath.Ext(path) == ".rar" {
					found = append(found, path)
				}
				return nil
			})
			if err != nil {
				log.Error("batch walk failed", "dir", dir, "err", err)
				os.Exit(1)
			}
		}
		archives = found
	}

	exit := 0
	for _, a := range archives {
		if err := extractArchive(log, a, *outDir, *listOnly, *include, *exclude); err != nil {
			log.Error("extraction failed", "archive", a, "err", err)
			exit = 1
		}
	}
	os.Exit(exit)
}

func matchesFilters(name, include, exclude string) bool {
	if include != "" {
		if ok, _ := doublestar.Match(include, name); !ok {
			return false
		}
	}
	if exclude != "" {
		if ok, _ := doublestar.Match(exclude, name); ok {
			return false
		}
	}
	return true
}

func extractArchive(log *slog.Logger, archivePath, outDir string, listOnly bool, include, exclude string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := blockformat.CheckSignature(f); err != nil {
		return fmt.Errorf("%s: %w", archivePath, err)
	}

	orch := rardecode.NewOrchestrator(log)

	var bar *pb.ProgressBar
	if !listOnly {
		if fi, err := f.Stat(); err == nil {
			bar = pb.Full.Start64(fi.Size())
			defer bar.Finish()
		}
	}

	successCount, failCount := 0, 0
	for {
		hdr, err := blockformat.ReadHeader(f)
		if errors.Is(err, os.ErrClosed) {
			break
		}
		if err != nil {
			break // EOF or corrupted trailer: stop scanning this archive
		}

		payload := make([]byte, hdr.PayloadLen)
		if _, err := readFull(f, payload); err != nil {
			return err
		}

		if hdr.HasExtra {
			if _, err := readFull(f, make([]byte, hdr.ExtraLen)); err != nil {
				return err
			}
		}

		if hdr.Type != blockformat.TypeFile {
			if hdr.HasData {
				if _, err := readFull(f, make([]byte, hdr.DataLen)); err != nil {
					return err
				}
			}
			if hdr.Type == blockformat.TypeEnd {
				break
			}
			continue
		}

		fb, err := blockformat.ParseFileBlock(hdr, payload)
		if err != nil {
			return err
		}

		if !matchesFilters(fb.Name, include, exclude) {
			if hdr.HasData {
				if _, err := readFull(f, make([]byte, hdr.DataLen)); err != nil {
					return err
				}
			}
			continue
		}

		if listOnly {
			fmt.Printf("%12d  %s\n", fb.UnpackedSize, fb.Name)
			if hdr.HasData {
				if _, err := readFull(f, make([]byte, hdr.DataLen)); err != nil {
					return err
				}
			}
			continue
		}

		body := &sectionReader{f: f, remaining: int64(hdr.DataLen)}

		out, err := rarfs.Create(outDir, fb.Name, fb.UnpackedSize)
		if err != nil {
			return err
		}

		size := fb.UnpackedSize
		derr := orch.Decode(body, out, fb.CompressionMethod, fb.Properties, &size)
		if derr != nil {
			filesFailed.WithLabelValues(derr.Kind.String()).Inc()
			failCount++
			log.Warn("file extraction failed", "name", fb.Name, "kind", derr.Kind, "err", derr.Err)
			_ = rarfs.Abort(out)
		} else {
			filesDecoded.Inc()
			bytesDecoded.Add(float64(fb.UnpackedSize))
			successCount++
			_ = rarfs.Finish(out)
		}

		if bar != nil {
			bar.Add64(int64(hdr.HeaderLen) + int64(hdr.DataLen))
		}

		// skip any bytes of the data area the decoder did not consume
		// (e.g. a corrupted file whose declared size was never reached).
		if _, err := body.Discard(); err != nil {
			return err
		}
	}

	log.Info("archive done", "archive", archivePath, "succeeded", successCount, "failed", failCount)
	if failCount > 0 {
		return fmt.Errorf("%s: %d file(s) failed", archivePath, failCount)
	}
	return nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := f.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// sectionReader bounds reads to a fixed-size data area within the
// archive file, tracking how much of it was actually consumed so any
// remainder can be skipped before the next block header.
type sectionReader struct {
	f         *os.File
	remaining int64
}

func (s *sectionReader) Read(p []byte) (int, error) {
	if s.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > s.remaining {
		p = p[:s.remaining]
	}
	n, err := s.f.Read(p)
	s.remaining -= int64(n)
	return n, err
}

func (s *sectionReader) Discard() (int64, error) {
	if s.remaining <= 0 {
		return 0, nil
	}
	n, err := s.f.Seek(s.remaining, os.SEEK_CUR)
	s.remaining = 0
	return n, err
}
