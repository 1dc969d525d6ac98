// Command ixstatusd serves read-only HTTP status for a running buffer
// pool: frame count and occupancy. It opens the index but serves none of
// its metadata.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tuannm99/ixdb/internal"
	"github.com/tuannm99/ixdb/internal/btree"
	"github.com/tuannm99/ixdb/internal/bufferpool"
	"github.com/tuannm99/ixdb/internal/storage"
)

type statusServer struct {
	bp  *bufferpool.Pool
	idx *btree.Index
}

func (s *statusServer) handlePoolStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"numFrames": s.bp.NumFrames(),
		"occupied":  s.bp.Occupied(),
	})
}

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "ixdb.yaml", "path to ixdb yaml config")
	flag.Parse()

	cfg, err := internal.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	relFile, err := storage.OpenDiskFile(cfg.Index.Dir + "/" + cfg.Index.RelationName)
	if err != nil {
		log.Fatalf("open relation: %v", err)
	}
	defer relFile.Close()

	bp := bufferpool.New(cfg.BufferPool.NumFrames)
	idx, err := btree.New(cfg.Index.Dir, cfg.Index.RelationName, cfg.Index.AttrByteOffset, btree.AttrInt32, bp, relFile)
	if err != nil {
		log.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	srv := &statusServer{bp: bp, idx: idx}

	router := chi.NewRouter()
	router.Get("/status/pool", srv.handlePoolStatus)

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	addr := ":" + strconv.Itoa(port)
	slog.Info("ixstatusd.listen", "addr", addr)
	log.Fatal(http.ListenAndServe(addr, router))
}
