// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mcphost/mcphost/internal/log"
)

// debounceDelay absorbs the burst of write events a single save can
// produce across editors, mirroring the teacher's own tools-file watcher.
const debounceDelay = 100 * time.Millisecond

// Watch reloads path on every write/create/rename and calls onReload with
// the freshly parsed Config. It blocks until ctx is cancelled. A reload
// that fails to parse or validate is logged and skipped; the previous
// configuration keeps running.
func Watch(ctx context.Context, path string, logger log.Logger, onReload func(Config)) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		if logger != nil {
			logger.Warn("config: unable to start file watcher", "error", err)
		}
		return
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		if logger != nil {
			logger.Warn("config: unable to watch directory", "dir", dir, "error", err)
		}
		return
	}
	target := filepath.Clean(path)

	debounce := time.NewTimer(time.Minute)
	debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			if logger != nil && err != nil {
				logger.Warn("config: file watcher error", "error", err)
			}
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if !e.Has(fsnotify.Write | fsnotify.Create | fsnotify.Rename) {
				continue
			}
			if filepath.Clean(e.Name) != target {
				continue
			}
			debounce.Reset(debounceDelay)
		case <-debounce.C:
			cfg, err := Load(ctx, path)
			if err != nil {
				if logger != nil {
					logger.Warn("config: reload failed, keeping previous configuration", "error", err)
				}
				continue
			}
			onReload(cfg)
		}
	}
}
