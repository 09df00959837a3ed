// Package ormmock holds generated gomock doubles for the orm package's
// interfaces, used by repository-layer unit tests that need to assert the
// exact sequence of Open/Begin/Exec/Commit/Rollback calls a Base method
// makes rather than emulate SQL against a fake table.
package ormmock

// Generate mocks for the Adapter/Session/Tx/Row/Rows interfaces in
// internal/orm. This creates MockAdapter, MockSession, MockTx, MockRow and
// MockRows with a fluent EXPECT() API.
//go:generate go run go.uber.org/mock/mockgen -package=ormmock -destination=mock_orm.go github.com/aras-services/goframe/internal/orm Adapter,Session,Tx,Row,Rows
