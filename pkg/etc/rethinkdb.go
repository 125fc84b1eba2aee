package etc

import (
	"fmt"

	r "gopkg.in/rethinkdb/rethinkdb-go.v6"
)

const (
	recordID     = "id"
	partitionKey = "partition_key"
)

// GetRethinkdbConnection opens a connection pool and lazily provisions the
// database, tables and indices used by the rethinkdb store. Provisioning is
// idempotent so concurrent invocations racing on first use are harmless.
func GetRethinkdbConnection(config Rethink) (*r.Session, error) {
	db, err := r.Connect(r.ConnectOpts{
		Addresses:  config.Addresses,
		Database:   config.Database,
		MaxOpen:    config.MaxOpen,
		InitialCap: config.InitialCap,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to rethinkdb failed: %w", err)
	}

	r.SetTags("rethinkdb", "json")

	if err = createDatabaseIfNotExist(config.Database, db); err != nil {
		return nil, fmt.Errorf("creating database %s failed: %w", config.Database, err)
	}

	if err = createTableIfNotExist(config.RecordsTable, recordID, db); err != nil {
		return nil, fmt.Errorf("creating table %s failed: %w", config.RecordsTable, err)
	}

	if err = createTableIfNotExist(config.PayloadsTable, recordID, db); err != nil {
		return nil, fmt.Errorf("creating table %s failed: %w", config.PayloadsTable, err)
	}

	if err = createIndicesIfNotExist(config.RecordsTable, []string{partitionKey}, db); err != nil {
		return nil, fmt.Errorf("creating indices on table %s failed: %w", config.RecordsTable, err)
	}

	return db, nil
}

func createDatabaseIfNotExist(database string, db *r.Session) error {
	var dbExists bool

	if err := r.DBList().Contains(database).ReadOne(&dbExists, db); err != nil {
		return fmt.Errorf("could not determine whether db %s exists: %w", database, err)
	}

	if !dbExists {
		res, err := r.DBCreate(database).RunWrite(db)
		if err != nil || res.DBsCreated != 1 {
			return fmt.Errorf("creating db %s failed: %w", database, err)
		}
	}

	return nil
}

func createTableIfNotExist(table, primaryKey string, db *r.Session) error {
	var tableExists bool

	if err := r.TableList().Contains(table).ReadOne(&tableExists, db); err != nil {
		return fmt.Errorf("could not determine whether table %s exists: %w", table, err)
	}

	if !tableExists {
		res, err := r.TableCreate(table, r.TableCreateOpts{PrimaryKey: primaryKey}).RunWrite(db)
		if err != nil || res.TablesCreated != 1 {
			return fmt.Errorf("creating table %s failed: %w", table, err)
		}
	}

	return nil
}

func createIndicesIfNotExist(table string, indices []string, db *r.Session) error {
	contains := func(key string, keys []string) bool {
		for _, k := range keys {
			if k == key {
				return true
			}
		}

		return false
	}

	existingIndices := make([]string, 0)

	if err := r.Table(table).IndexList().ReadAll(&existingIndices, db); err != nil {
		return fmt.Errorf("could not get existing indices for table %s: %w", table, err)
	}

	for _, index := range indices {
		if !contains(index, existingIndices) {
			res, err := r.Table(table).IndexCreate(index).RunWrite(db)
			if err != nil || res.Created != 1 {
				return fmt.Errorf("creating index %s on table %s failed: %w", index, table, err)
			}
		}
	}

	return nil
}
