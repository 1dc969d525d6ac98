// Command ixbuild constructs a B+-tree index over one attribute of a
// relation file and reports completion.
package main

import (
	"flag"
	"log"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tuannm99/ixdb/internal"
	"github.com/tuannm99/ixdb/internal/btree"
	"github.com/tuannm99/ixdb/internal/bufferpool"
	"github.com/tuannm99/ixdb/internal/storage"
)

func main() {
	var cfgPath, relationPath string
	flag.StringVar(&cfgPath, "config", "ixdb.yaml", "path to ixdb yaml config")
	flag.StringVar(&relationPath, "relation", "", "path to the relation file to index (defaults to index.dir/index.relation_name)")
	flag.Parse()

	cfg, err := internal.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	buildID := uuid.New()
	slog.Info("ixbuild.start", "buildID", buildID, "relation", cfg.Index.RelationName, "offset", cfg.Index.AttrByteOffset)

	if relationPath == "" {
		relationPath = cfg.Index.Dir + "/" + cfg.Index.RelationName
	}
	relFile, err := storage.OpenDiskFile(relationPath)
	if err != nil {
		log.Fatalf("open relation: %v", err)
	}
	defer relFile.Close()

	bp := bufferpool.New(cfg.BufferPool.NumFrames)

	idx, err := btree.New(cfg.Index.Dir, cfg.Index.RelationName, cfg.Index.AttrByteOffset, btree.AttrInt32, bp, relFile)
	if err != nil {
		log.Fatalf("build index: %v", err)
	}
	defer idx.Close()

	slog.Info("ixbuild.done", "buildID", buildID, "file", btree.IndexFileName(cfg.Index.RelationName, cfg.Index.AttrByteOffset))
}
