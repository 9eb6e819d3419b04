package postgres

import (
	"time"

	"github.com/kfcrebrand/registration/internal/domain/team"
)

type teamTableModel struct {
	Flag      string     `db:"flag"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

func teamFromRow(row teamTableModel) team.Team {
	return team.Team{Flag: row.Flag}
}
