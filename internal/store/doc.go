// Package store persists the shell's lifecycle ledger.
//
// The ledger is an append-only record of coordinator transitions: attach,
// start, stop, destroy, runtime ready, deep links and shutdown. It is owned
// outside the coordinator and fed through a Recorder, which adapts any Store
// into a shell.Observer.
//
// # Implementations
//
//   - SQLiteStore: modernc.org/sqlite, WAL mode, schema created on open.
//   - MockStore: in-memory, for tests.
//
// # Usage
//
//	s, err := store.NewSQLiteStore(cfg.Database.Path)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	coord.AddObserver(store.NewRecorder(s, logger))
//	events, err := s.ListEvents(ctx, 50)
package store
