package ui

import (
	"context"
	"errors"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

type fileEventMsg struct {
	path string
	op   fsnotify.Op
}

type fileWatchErrMsg struct {
	err error
}

// watchPanels starts watching the local files behind the code panels.
func (m *Model) watchPanels() tea.Cmd {
	if m.watchable == nil || m.reload == nil || m.widget == nil {
		return nil
	}
	added := false
	for _, p := range m.widget.CodePanels() {
		path, ok := m.watchable(p.Ref)
		if !ok {
			continue
		}
		if err := m.watchFile(path, p.Ref); err != nil {
			m.err = err
			return nil
		}
		added = true
	}
	if !added {
		return nil
	}
	return m.waitForFileEvent()
}

func (m *Model) watchFile(path, ref string) error {
	path = filepath.Clean(path)
	if err := m.ensureWatcher(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if !m.watchDirs[dir] {
		if err := m.watcher.Add(dir); err != nil {
			return err
		}
		m.watchDirs[dir] = true
	}
	m.watched[path] = ref
	return nil
}

func (m *Model) ensureWatcher() error {
	if m.watcher != nil {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = watcher
	m.watchChan = make(chan tea.Msg, 10)

	go m.watchLoop(watcher, m.watchChan)
	return nil
}

func (m *Model) watchLoop(watcher *fsnotify.Watcher, out chan<- tea.Msg) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case out <- fileEventMsg{path: event.Name, op: event.Op}:
			case <-m.ctx.Done():
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			select {
			case out <- fileWatchErrMsg{err: err}:
			case <-m.ctx.Done():
				return
			}
		}
	}
}

func (m *Model) waitForFileEvent() tea.Cmd {
	if m.watchChan == nil {
		return nil
	}
	ch := m.watchChan
	done := m.ctx.Done()
	return func() tea.Msg {
		select {
		case msg := <-ch:
			return msg
		case <-done:
			return nil
		}
	}
}

type reloadedMsg struct {
	ref    string
	raw    string
	markup string
	err    error
}

func (m *Model) handleFileEvent(msg fileEventMsg) tea.Cmd {
	ref, ok := m.watched[filepath.Clean(msg.path)]
	if !ok {
		return m.waitForFileEvent()
	}
	return tea.Batch(m.reloadPanel(ref), m.waitForFileEvent())
}

// reloadPanel fetches one panel's file again off the event loop.
func (m *Model) reloadPanel(ref string) tea.Cmd {
	if m.reload == nil {
		return nil
	}
	reload, ctx := m.reload, m.ctx
	return func() tea.Msg {
		raw, markup, err := reload(ctx, ref)
		return reloadedMsg{ref: ref, raw: raw, markup: markup, err: err}
	}
}

// applyReload refreshes one code panel in place. Visibility is untouched.
func (m *Model) applyReload(msg reloadedMsg) {
	if m.widget == nil || errors.Is(msg.err, context.Canceled) {
		return
	}
	p, ok := m.widget.PanelByRef(msg.ref)
	if !ok {
		return
	}
	if msg.err != nil {
		m.logger.Warn("reload failed", "ref", msg.ref, "error", msg.err)
		m.err = msg.err
		m.layout()
		return
	}
	m.err = nil
	m.widget.UpdateContent(p.ID, msg.raw, msg.markup)
	m.logger.Debug("reloaded", "ref", msg.ref)

	if p.ID == m.shownCode {
		offset := m.codeVP.YOffset
		m.codeVP.SetContent(msg.markup)
		m.codeVP.SetYOffset(offset)
	}
	if msg.ref == m.widget.Preview().Content {
		m.previewWidth = -1
	}
	m.layout()
}
