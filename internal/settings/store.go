package settings

import (
	"context"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Store holds the current snapshot behind an atomic pointer. Readers call
// Current once per request and keep that snapshot; Watch swaps the pointer
// wholesale on file change.
type Store struct {
	path string
	cur  atomic.Pointer[Settings]
	log  zerolog.Logger
}

func NewStore(path string, log zerolog.Logger) (*Store, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	st := &Store{path: path, log: log}
	st.cur.Store(s)
	return st, nil
}

func (st *Store) Current() *Settings { return st.cur.Load() }

// Reload re-reads the pref file and swaps the snapshot. A parse failure
// keeps the previous snapshot live.
func (st *Store) Reload() error {
	s, err := Load(st.path)
	if err != nil {
		return err
	}
	st.cur.Store(s)
	return nil
}

// Watch re-loads on file events until ctx is done. Editors replace files
// instead of writing in place, so create/rename count as changes too.
func (st *Store) Watch(ctx context.Context) error {
	if st.path == "" {
		<-ctx.Done()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(st.path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := st.Reload(); err != nil {
				st.log.Warn().Err(err).Str("path", st.path).Msg("配置重载失败，继续使用旧快照")
				continue
			}
			st.log.Info().Str("path", st.path).Msg("配置已重载")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			st.log.Warn().Err(err).Msg("配置监听错误")
		}
	}
}
