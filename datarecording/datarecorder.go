// Package datarecording stores simulation records in SQLite databases.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

const defaultBatchSize = 100000

// ErrClosed is returned when using a recorder that has been closed.
var ErrClosed = errors.New("datarecording: recorder closed")

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the fields of the
	// sample entry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry of a table that already exists. The buffer
	// is flushed when it is full.
	InsertData(tableName string, entry any) error

	// ListTables returns a slice containing names of all tables
	ListTables() []string

	// Flush writes all the buffered entries into the database in a single
	// transaction.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

// New creates a new DataRecorder that writes into path.sqlite3. An empty
// path gets a unique name. The recorder is flushed when the program exits
// through atexit.
func New(path string) (DataRecorder, error) {
	if path == "" {
		path = "reactor_" + xid.New().String()
	}

	filename := FileName(path)

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("datarecording: file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	w := newSQLiteWriter(db)
	w.filename = filename

	atexit.Register(func() {
		if err := w.Flush(); err != nil && !errors.Is(err, ErrClosed) {
			fmt.Fprintf(os.Stderr, "Failed to flush %s: %v\n", filename, err)
		}
	})

	return w, nil
}

// FileName returns the database file that New creates for path.
func FileName(path string) string {
	return path + ".sqlite3"
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB) DataRecorder {
	return newSQLiteWriter(db)
}

func newSQLiteWriter(db *sql.DB) *sqliteWriter {
	return &sqliteWriter{
		DB:        db,
		batchSize: defaultBatchSize,
		tables:    make(map[string]*table),
	}
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqliteWriter is the writer that writes data into SQLite database
type sqliteWriter struct {
	*sql.DB

	lock       sync.Mutex
	filename   string
	tables     map[string]*table
	tableOrder []string
	batchSize  int
	entryCount int
	closed     bool
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// fieldNames returns the column names of an entry, which must be a struct
// of plain exported fields.
func fieldNames(entryType reflect.Type) ([]string, error) {
	if entryType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("datarecording: %s is not a struct", entryType)
	}

	names := make([]string, 0, entryType.NumField())
	for i := 0; i < entryType.NumField(); i++ {
		field := entryType.Field(i)

		if !field.IsExported() || !isAllowedKind(field.Type.Kind()) {
			return nil, fmt.Errorf("datarecording: field %s of %s is invalid",
				field.Name, entryType)
		}

		names = append(names, field.Name)
	}

	return names, nil
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return ErrClosed
	}

	if _, exists := t.tables[tableName]; exists {
		return fmt.Errorf("datarecording: table %s already exists", tableName)
	}

	structType := reflect.TypeOf(sampleEntry)

	names, err := fieldNames(structType)
	if err != nil {
		return err
	}

	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + strings.Join(names, ", \n\t") + "\n" + `);`
	if _, err := t.Exec(createTableSQL); err != nil {
		return fmt.Errorf("datarecording: create table %s: %w", tableName, err)
	}

	t.tables[tableName] = &table{structType: structType}
	t.tableOrder = append(t.tableOrder, tableName)

	return nil
}

func (t *sqliteWriter) InsertData(tableName string, entry any) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return ErrClosed
	}

	table, exists := t.tables[tableName]
	if !exists {
		return fmt.Errorf("datarecording: table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != table.structType {
		return fmt.Errorf("datarecording: entry %T does not fit table %s",
			entry, tableName)
	}

	table.entries = append(table.entries, entry)

	t.entryCount++
	if t.entryCount >= t.batchSize {
		return t.flush()
	}

	return nil
}

func (t *sqliteWriter) ListTables() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	tables := make([]string, len(t.tableOrder))
	copy(tables, t.tableOrder)

	return tables
}

func (t *sqliteWriter) Flush() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return ErrClosed
	}

	return t.flush()
}

func (t *sqliteWriter) flush() error {
	if t.entryCount == 0 {
		return nil
	}

	tx, err := t.Begin()
	if err != nil {
		return err
	}

	for _, tableName := range t.tableOrder {
		table := t.tables[tableName]
		if len(table.entries) == 0 {
			continue
		}

		if err := insertEntries(tx, tableName, table); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("datarecording: insert into %s: %w",
				tableName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for _, table := range t.tables {
		table.entries = nil
	}

	t.entryCount = 0

	return nil
}

func insertEntries(tx *sql.Tx, tableName string, table *table) error {
	placeholders := make([]string, table.structType.NumField())
	for i := range placeholders {
		placeholders[i] = "?"
	}

	sqlStr := "INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"

	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return err
	}
	defer stmt.Close()

	v := make([]any, len(placeholders))
	for _, entry := range table.entries {
		fields := reflect.ValueOf(entry)
		for i := range v {
			v[i] = fields.Field(i).Interface()
		}

		if _, err := stmt.Exec(v...); err != nil {
			return err
		}
	}

	return nil
}

func (t *sqliteWriter) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil
	}

	flushErr := t.flush()
	t.closed = true

	return errors.Join(flushErr, t.DB.Close())
}
