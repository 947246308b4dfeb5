// Package database provides the SQLite connection for the notification
// class store.
//
// Open applies the service's connection settings (busy timeout, WAL, foreign
// keys, a single connection) and Migrate brings the schema up to date from
// an fs.FS of versioned .up.sql/.down.sql files, normally the embedded
// migrations package.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive: new columns are nullable or defaulted, and each
// migration ships with a down file.
package database
