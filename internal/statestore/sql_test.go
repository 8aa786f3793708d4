package statestore

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/haasonsaas/agentcore/pkg/models"
)

func TestSQLStoreSaveInsertsFirstVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewSQLStoreFromDB(db, DialectPostgres)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO agent_checkpoints")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	cp := &models.Checkpoint{TaskID: "task-1", Status: models.TaskRunning}
	if err := store.Save(context.Background(), cp, 0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLStoreSaveConflictOnStaleVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewSQLStoreFromDB(db, DialectPostgres)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE agent_checkpoints")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	cp := &models.Checkpoint{TaskID: "task-1", Status: models.TaskRunning}
	err = store.Save(context.Background(), cp, 3)
	if err != ErrVersionConflict {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLStoreLoadNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewSQLStoreFromDB(db, DialectPostgres)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT task_id, status")).
		WillReturnRows(sqlmock.NewRows(nil))

	_, err = store.Load(context.Background(), "missing")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
