// Command ixcheckpoint periodically flushes an index file's dirty pages
// through the buffer pool on a cron schedule.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/tuannm99/ixdb/internal"
	"github.com/tuannm99/ixdb/internal/btree"
	"github.com/tuannm99/ixdb/internal/bufferpool"
	"github.com/tuannm99/ixdb/internal/storage"
)

func main() {
	var cfgPath, schedule string
	flag.StringVar(&cfgPath, "config", "ixdb.yaml", "path to ixdb yaml config")
	flag.StringVar(&schedule, "schedule", "@every 1m", "cron schedule for checkpoint flushes")
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

	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		if err := idx.Flush(); err != nil {
			slog.Error("ixcheckpoint.flush.failed", "err", err)
			return
		}
		slog.Info("ixcheckpoint.flush.ok")
	})
	if err != nil {
		log.Fatalf("schedule checkpoint: %v", err)
	}

	c.Start()
	defer c.Stop()

	slog.Info("ixcheckpoint.running", "schedule", schedule)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	slog.Info("ixcheckpoint.shutdown")
}
