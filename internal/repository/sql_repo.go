package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/kstielfps/VATImposter/internal/cache"
	"github.com/kstielfps/VATImposter/internal/model"
)

// OpenSQL opens a gorm connection and migrates the schema. SQLite is held to
// one connection since it serializes writers anyway.
func OpenSQL(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if db.Dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&roomRow{},
		&participantRow{},
		&hintRow{},
		&voteRow{},
		&nudgeRow{},
		&wordGroupRow{},
		&wordRow{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type sqlRoomRepo struct {
	db     *gorm.DB
	locker cache.RoomLocker
	// rowLocks is false on SQLite, which has no SELECT ... FOR UPDATE.
	rowLocks bool
}

// NewSQLRoomRepo stores rooms as relational rows. The room row is locked
// FOR UPDATE inside the transaction on top of the in-process locker.
func NewSQLRoomRepo(db *gorm.DB, locker cache.RoomLocker) RoomRepo {
	if locker == nil {
		locker = cache.NewLocalRoomLocker()
	}
	return &sqlRoomRepo{
		db:       db,
		locker:   locker,
		rowLocks: db.Dialector.Name() != "sqlite",
	}
}

func (r *sqlRoomRepo) Create(ctx context.Context, st *model.RoomState) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toRoomRow(&st.Room)).Error; err != nil {
			return err
		}
		return r.syncChildren(tx, st)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrCodeTaken
	}
	return err
}

func (r *sqlRoomRepo) Get(ctx context.Context, code string) (*model.RoomState, error) {
	return r.load(r.db.WithContext(ctx), code, false)
}

func (r *sqlRoomRepo) load(tx *gorm.DB, code string, forUpdate bool) (*model.RoomState, error) {
	q := tx
	if forUpdate && r.rowLocks {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row roomRow
	if err := q.Where("code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	st := model.NewRoomState(row.toModel())

	var participants []participantRow
	if err := tx.Where("room_code = ?", code).Order("seq").Find(&participants).Error; err != nil {
		return nil, err
	}
	for i := range participants {
		p, err := participants[i].toModel()
		if err != nil {
			return nil, fmt.Errorf("decode participant %s: %w", participants[i].ID, err)
		}
		st.Participants = append(st.Participants, p)
	}

	var hints []hintRow
	if err := tx.Where("room_code = ?", code).Order("round, created_at").Find(&hints).Error; err != nil {
		return nil, err
	}
	for i := range hints {
		st.Hints = append(st.Hints, hints[i].toModel())
	}

	var votes []voteRow
	if err := tx.Where("room_code = ?", code).Order("created_at").Find(&votes).Error; err != nil {
		return nil, err
	}
	for i := range votes {
		st.Votes = append(st.Votes, votes[i].toModel())
	}

	var nudges []nudgeRow
	if err := tx.Where("room_code = ?", code).Order("created_at").Find(&nudges).Error; err != nil {
		return nil, err
	}
	for i := range nudges {
		st.Nudges = append(st.Nudges, nudges[i].toModel())
	}
	return st, nil
}

func (r *sqlRoomRepo) WithRoomLock(ctx context.Context, code string, fn func(st *model.RoomState) error) (*model.RoomState, error) {
	unlock, err := r.locker.Lock(ctx, code)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var committed *model.RoomState
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := r.load(tx, code, true)
		if err != nil {
			return err
		}
		prev := st.Room.Version
		if err := fn(st); err != nil {
			return err
		}
		st.Room.Version = prev + 1

		res := tx.Model(&roomRow{}).
			Where("code = ? AND version = ?", code, prev).
			Select("*").
			Updates(toRoomRow(&st.Room))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleRoom
		}
		if err := r.syncChildren(tx, st); err != nil {
			return err
		}
		committed = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// syncChildren deletes child rows the state no longer has and upserts the
// rest by primary key.
func (r *sqlRoomRepo) syncChildren(tx *gorm.DB, st *model.RoomState) error {
	code := st.Room.Code

	participants := make([]participantRow, 0, len(st.Participants))
	for _, p := range st.Participants {
		row, err := toParticipantRow(code, p)
		if err != nil {
			return err
		}
		participants = append(participants, row)
	}
	hints := make([]hintRow, 0, len(st.Hints))
	for _, h := range st.Hints {
		hints = append(hints, toHintRow(code, h))
	}
	votes := make([]voteRow, 0, len(st.Votes))
	for _, v := range st.Votes {
		votes = append(votes, toVoteRow(code, v))
	}
	nudges := make([]nudgeRow, 0, len(st.Nudges))
	for _, n := range st.Nudges {
		nudges = append(nudges, toNudgeRow(code, n))
	}

	// Children first so removed participants do not trip name uniqueness.
	if err := replaceRows(tx, code, hints, func(h hintRow) string { return h.ID }); err != nil {
		return err
	}
	if err := replaceRows(tx, code, votes, func(v voteRow) string { return v.ID }); err != nil {
		return err
	}
	if err := replaceRows(tx, code, nudges, func(n nudgeRow) string { return n.ID }); err != nil {
		return err
	}
	return replaceRows(tx, code, participants, func(p participantRow) string { return p.ID })
}

func replaceRows[T any](tx *gorm.DB, code string, rows []T, id func(T) string) error {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, id(row))
	}
	del := tx.Where("room_code = ?", code)
	if len(ids) > 0 {
		del = del.Where("id NOT IN ?", ids)
	}
	var zero T
	if err := del.Delete(&zero).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Save(&rows).Error
}

func (r *sqlRoomRepo) DeleteWhere(ctx context.Context, code string, pred func(st *model.RoomState) bool) (bool, error) {
	unlock, err := r.locker.Lock(ctx, code)
	if err != nil {
		return false, err
	}
	defer unlock()

	deleted := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := r.load(tx, code, true)
		if errors.Is(err, ErrRoomNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !pred(st) {
			return nil
		}
		if err := deleteRoomRows(tx, code); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func deleteRoomRows(tx *gorm.DB, code string) error {
	for _, m := range []any{&hintRow{}, &voteRow{}, &nudgeRow{}, &participantRow{}} {
		if err := tx.Where("room_code = ?", code).Delete(m).Error; err != nil {
			return err
		}
	}
	return tx.Where("code = ?", code).Delete(&roomRow{}).Error
}

func (r *sqlRoomRepo) Delete(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteRoomRows(tx, code)
	})
}

func (r *sqlRoomRepo) Exists(ctx context.Context, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&roomRow{}).Where("code = ?", code).Count(&n).Error
	return n > 0, err
}

func (r *sqlRoomRepo) ListFinished(ctx context.Context) (map[string]time.Time, error) {
	var rows []roomRow
	err := r.db.WithContext(ctx).
		Select("code", "finished_at").
		Where("phase = ? AND finished_at IS NOT NULL", model.PhaseFinished).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		out[row.Code] = *row.FinishedAt
	}
	return out, nil
}

type sqlWordGroupRepo struct {
	db *gorm.DB
}

func NewSQLWordGroupRepo(db *gorm.DB) WordGroupRepo {
	return &sqlWordGroupRepo{db: db}
}

func (r *sqlWordGroupRepo) ListWithWords(ctx context.Context) ([]*model.WordGroup, error) {
	var rows []wordGroupRow
	err := r.db.WithContext(ctx).
		Preload("Words", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	groups := make([]*model.WordGroup, 0, len(rows))
	for _, row := range rows {
		g := &model.WordGroup{ID: row.ID, Name: row.Name}
		for _, w := range row.Words {
			g.Words = append(g.Words, model.Word{ID: w.ID, GroupID: w.GroupID, Text: w.Text})
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (r *sqlWordGroupRepo) Save(ctx context.Context, g *model.WordGroup) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&wordGroupRow{}).Where("name = ?", g.Name).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		row := wordGroupRow{ID: g.ID, Name: g.Name}
		for _, w := range g.Words {
			row.Words = append(row.Words, wordRow{ID: w.ID, GroupID: g.ID, Text: w.Text})
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	return created, err
}
