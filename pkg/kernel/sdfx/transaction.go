package sdfx

import (
	"fmt"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/google/uuid"
)

// transaction snapshots document state on Begin. Abort puts the snapshot
// back; Commit drops it.
type transaction struct {
	id       string
	k        *Kernel
	name     string
	scope    kernel.TransactionScope
	doc      kernel.DocumentID
	snapshot map[kernel.DocumentID]*document
	done     bool
}

var _ kernel.Transaction = (*transaction)(nil)

// Begin opens a transaction. A local transaction covers doc only; a global
// one covers every open document. Only one transaction may be open per
// document at a time, and a global transaction excludes all others.
func (k *Kernel) Begin(doc kernel.DocumentID, name string, scope kernel.TransactionScope) (kernel.Transaction, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("Begin"); err != nil {
		return nil, err
	}
	d, err := k.doc(doc)
	if err != nil {
		return nil, err
	}
	if k.global != nil {
		return nil, fmt.Errorf("sdfx: begin %q: %w", name, kernel.ErrTransactionOpen)
	}
	for _, t := range k.local {
		if scope == kernel.ScopeGlobal || t.doc == doc {
			return nil, fmt.Errorf("sdfx: begin %q: %w", name, kernel.ErrTransactionOpen)
		}
	}

	tx := &transaction{
		id:       uuid.NewString(),
		k:        k,
		name:     name,
		scope:    scope,
		doc:      doc,
		snapshot: map[kernel.DocumentID]*document{},
	}
	if scope == kernel.ScopeGlobal {
		for id, od := range k.docs {
			tx.snapshot[id] = od.clone()
		}
		k.global = tx
	} else {
		tx.snapshot[doc] = d.clone()
		k.local[doc] = tx
	}
	k.log.Debug("transaction begin", "tx", tx.id, "name", name, "scope", scope.String(), "doc", string(doc))
	return tx, nil
}

func (t *transaction) ID() string { return t.id }

// Commit keeps every change made since Begin.
func (t *transaction) Commit() error {
	k := t.k
	k.mu.Lock()
	defer k.mu.Unlock()
	if t.done {
		return fmt.Errorf("sdfx: commit %q: %w", t.name, kernel.ErrNoTransaction)
	}
	if err := k.inject("Commit"); err != nil {
		return err
	}
	k.close(t)
	k.log.Debug("transaction commit", "tx", t.id, "name", t.name)
	return nil
}

// Abort discards every change made since Begin.
func (t *transaction) Abort() error {
	k := t.k
	k.mu.Lock()
	defer k.mu.Unlock()
	if t.done {
		return fmt.Errorf("sdfx: abort %q: %w", t.name, kernel.ErrNoTransaction)
	}
	for id, snap := range t.snapshot {
		k.docs[id] = snap
	}
	k.close(t)
	k.log.Debug("transaction abort", "tx", t.id, "name", t.name, "docs", len(t.snapshot))
	return nil
}

func (k *Kernel) close(t *transaction) {
	t.done = true
	t.snapshot = nil
	if k.global == t {
		k.global = nil
	}
	if k.local[t.doc] == t {
		delete(k.local, t.doc)
	}
}
