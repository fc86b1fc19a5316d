package service

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/repository"
	"github.com/alexanderramin/smeta/internal/snapshot"
)

// SQLiteSources binds the snapshot assembler to the SQLite repositories.
func SQLiteSources(q db.DBTX) snapshot.Sources {
	return snapshot.Sources{
		Sections:  repository.NewSQLiteSectionRepo(q),
		Items:     repository.NewSQLiteLineItemRepo(q),
		Resources: repository.NewSQLiteResourceRepo(q),
		Totals:    repository.NewSQLiteTotalRepo(q),
		SubWorks:  repository.NewSQLiteSubWorkRepo(q),
		Units:     repository.NewSQLiteUnitRepo(q),
		WorkTypes: repository.NewSQLiteWorkTypeRepo(q),
	}
}

func formatValidationErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	const shown = 10
	lines := make([]string, 0, shown+1)
	for i, err := range errs {
		if i == shown {
			lines = append(lines, fmt.Sprintf("... and %d more", len(errs)-shown))
			break
		}
		lines = append(lines, "  - "+err.Error())
	}
	return fmt.Errorf("import validation failed (%d errors):\n%s", len(errs), strings.Join(lines, "\n"))
}
