package runsdb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE training_run(
			id INTEGER PRIMARY KEY,
			state TEXT NOT NULL,
			dataset_root TEXT NOT NULL,
			seed INT NOT NULL,
			val_fraction REAL NOT NULL,
			batch_size INT NOT NULL,
			classes TEXT,
			distribution TEXT,
			class_weights TEXT,
			history TEXT,
			error TEXT,
			artifact_path TEXT,
			created_at INT,
			started_at INT,
			finished_at INT
		);
		CREATE INDEX idx_training_run_state ON training_run (state);
	`))

	return migs
}
