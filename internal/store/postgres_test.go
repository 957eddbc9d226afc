package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/ppiankov/tinthat/internal/model"
)

func TestPostgresNearest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, "claims")

	query := regexp.QuoteMeta(`SELECT id, content, embedding <=> $1::vector AS distance FROM "claims" WHERE system_label = $2 AND embedding <=> $1::vector < $3`)
	mock.ExpectQuery(query).
		WithArgs("[0.1,0.2]", "REAL", 0.5, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "distance"}).
			AddRow(7, "Việt Nam mua 500 máy bay.", 0.12).
			AddRow(9, "Hà Nội là thủ đô.", 0.41))

	got, err := st.Nearest(context.Background(), []float32{0.1, 0.2}, 3, 0.5)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ID != 7 || got[0].Distance != 0.12 {
		t.Errorf("unexpected first candidate: %+v", got[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresNearestUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, "claims")
	mock.ExpectQuery("SELECT id, content").WillReturnError(errors.New("connection refused"))

	_, err = st.Nearest(context.Background(), []float32{1}, 3, 0.5)
	if !errors.Is(err, model.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestPostgresInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, "claims")
	query := regexp.QuoteMeta(`INSERT INTO "claims" (article_id, content, embedding, system_label, verified, source_type, created_at) VALUES ($1, $2, $3::vector, $4, $5, $6, NOW()) RETURNING id`)
	mock.ExpectQuery(query).
		WithArgs(sqlmock.AnyArg(), "Giá xăng tăng 500 đồng.", "[0.5,0.25]", "UNDEFINED", false, "user").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := st.Insert(context.Background(), model.KBClaim{
		Text:       "Giá xăng tăng 500 đồng.",
		Embedding:  []float32{0.5, 0.25},
		SourceType: model.SourceUser,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != 42 {
		t.Errorf("expected id 42, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresSetTrustLabel(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, "claims")
	query := regexp.QuoteMeta(`UPDATE "claims" SET system_label = $1, verified = $2 WHERE id = $3`)
	mock.ExpectExec(query).WithArgs("REAL", true, int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("REAL", true, int64(6)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := st.SetTrustLabel(context.Background(), 5, model.TrustReal); err != nil {
		t.Fatalf("SetTrustLabel: %v", err)
	}
	err = st.SetTrustLabel(context.Background(), 6, model.TrustReal)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.SetTrustLabel(context.Background(), 5, "MAYBE"); err == nil {
		t.Fatal("expected invalid label error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresDimension(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, "claims")
	typmod := regexp.QuoteMeta(`SELECT atttypmod FROM pg_attribute`)

	mock.ExpectQuery(typmod).WithArgs("claims").
		WillReturnRows(sqlmock.NewRows([]string{"atttypmod"}).AddRow(768))
	dim, err := st.Dimension(context.Background())
	if err != nil || dim != 768 {
		t.Fatalf("expected 768, got %d (%v)", dim, err)
	}

	// Untyped column falls back to a stored row
	mock.ExpectQuery(typmod).WithArgs("claims").
		WillReturnRows(sqlmock.NewRows([]string{"atttypmod"}).AddRow(-1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT vector_dims(embedding) FROM "claims" LIMIT 1`)).
		WillReturnError(sql.ErrNoRows)
	dim, err = st.Dimension(context.Background())
	if err != nil || dim != 0 {
		t.Fatalf("expected 0 for empty table, got %d (%v)", dim, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, "claims")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT system_label, COUNT(*) FROM "claims" GROUP BY system_label`)).
		WillReturnRows(sqlmock.NewRows([]string{"system_label", "count"}).
			AddRow("REAL", 10).
			AddRow("UNDEFINED", 3))

	stats, err := st.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[model.TrustReal] != 10 || stats[model.TrustUndefined] != 3 {
		t.Errorf("unexpected stats: %v", stats)
	}
}

func TestEncodeVectorLiteral(t *testing.T) {
	got, err := encodeVectorLiteral([]float32{0.1, -2, 3.5})
	if err != nil {
		t.Fatal(err)
	}
	if got != "[0.1,-2,3.5]" {
		t.Errorf("got %s", got)
	}
	if _, err := encodeVectorLiteral(nil); err == nil {
		t.Error("expected error for empty vector")
	}
}
