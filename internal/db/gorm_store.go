package db

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bullsai/watchlist/internal/models"
)

type userRow struct {
	ID             string    `gorm:"primaryKey;size:24"`
	Email          string    `gorm:"uniqueIndex;size:320"`
	FirstName      string    `gorm:"column:first_name"`
	HashedPassword string    `gorm:"column:hashed_password"`
	AccountType    string    `gorm:"column:account_type;size:16"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (userRow) TableName() string { return "users" }

// listRow ids grow with creation order, which is the order lists are shown in.
type listRow struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"column:user_id;size:24;uniqueIndex:idx_user_list"`
	ListName  string    `gorm:"column:list_name;uniqueIndex:idx_user_list"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (listRow) TableName() string { return "favorite_lists" }

// listTickerRow's composite key is what makes the conditional insert atomic.
type listTickerRow struct {
	ListID    uint      `gorm:"primaryKey;autoIncrement:false"`
	TickerID  string    `gorm:"primaryKey;size:24"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (listTickerRow) TableName() string { return "favorite_list_tickers" }

type tickerRow struct {
	ID          string `gorm:"primaryKey;size:24"`
	Symbol      string `gorm:"index"`
	TradingName string `gorm:"column:trading_name"`
}

func (tickerRow) TableName() string { return "tickers" }

type transactionRow struct {
	ID            uint            `gorm:"primaryKey"`
	TickerID      string          `gorm:"column:ticker_id;size:24;index"`
	Date          time.Time       `gorm:"column:date;index"`
	AdjustedClose decimal.Decimal `gorm:"column:adjusted_close;type:numeric"`
	Volume        int64           `gorm:"column:volume"`
}

func (transactionRow) TableName() string { return "ticker_transactions" }

type glossaryRow struct {
	ID          string `gorm:"primaryKey;size:24"`
	Term        string `gorm:"index"`
	Description string
}

func (glossaryRow) TableName() string { return "glossary" }

// GormStore is the relational Store backend.
type GormStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormStore wraps db. Every call is bounded by timeout.
func NewGormStore(db *gorm.DB, timeout time.Duration) *GormStore {
	return &GormStore{db: db, timeout: timeout}
}

// Migrate creates or updates the schema.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(
		&userRow{},
		&listRow{},
		&listTickerRow{},
		&tickerRow{},
		&transactionRow{},
		&glossaryRow{},
	)
}

func (s *GormStore) withTimeout(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable(err, "ping")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable(err, "ping")
	}
	return nil
}

func (s *GormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if !models.ValidID(userID) {
		return nil, ErrNotFound
	}
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	var row userRow
	if err := db.First(&row, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err, "get user %s", userID)
	}
	return s.loadUser(db, row)
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	var row userRow
	if err := db.First(&row, "email = ?", strings.ToLower(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err, "get user by email")
	}
	return s.loadUser(db, row)
}

func (s *GormStore) loadUser(db *gorm.DB, row userRow) (*models.User, error) {
	var lists []listRow
	if err := db.Where("user_id = ?", row.ID).Order("id").Find(&lists).Error; err != nil {
		return nil, unavailable(err, "load lists of %s", row.ID)
	}

	user := &models.User{
		ID:             row.ID,
		Email:          row.Email,
		FirstName:      row.FirstName,
		HashedPassword: row.HashedPassword,
		AccountType:    models.AccountType(row.AccountType),
		CreatedAt:      row.CreatedAt,
		FavoriteLists:  make([]models.FavoriteList, 0, len(lists)),
	}
	if len(lists) == 0 {
		return user, nil
	}

	ids := make([]uint, len(lists))
	for i, l := range lists {
		ids[i] = l.ID
	}
	var members []listTickerRow
	if err := db.Where("list_id IN ?", ids).Order("created_at, ticker_id").Find(&members).Error; err != nil {
		return nil, unavailable(err, "load tickers of %s", row.ID)
	}
	byList := make(map[uint][]string, len(lists))
	for _, m := range members {
		byList[m.ListID] = append(byList[m.ListID], m.TickerID)
	}
	for _, l := range lists {
		tickers := byList[l.ID]
		if tickers == nil {
			tickers = []string{}
		}
		user.FavoriteLists = append(user.FavoriteLists, models.FavoriteList{ListName: l.ListName, Tickers: tickers})
	}
	return user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = models.NewID()
	}
	if user.AccountType == "" {
		user.AccountType = models.AccountBasic
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = strings.ToLower(user.Email)

	db, cancel := s.withTimeout(ctx)
	defer cancel()

	return db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&userRow{}).Where("email = ?", user.Email).Count(&existing).Error; err != nil {
			return unavailable(err, "create user")
		}
		if existing > 0 {
			return ErrConflict
		}
		row := userRow{
			ID:             user.ID,
			Email:          user.Email,
			FirstName:      user.FirstName,
			HashedPassword: user.HashedPassword,
			AccountType:    string(user.AccountType),
			CreatedAt:      user.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return unavailable(err, "create user")
		}
		for _, l := range user.FavoriteLists {
			lr := listRow{UserID: user.ID, ListName: l.ListName}
			if err := tx.Create(&lr).Error; err != nil {
				return unavailable(err, "create list %q", l.ListName)
			}
			for _, t := range l.Tickers {
				if err := tx.Create(&listTickerRow{ListID: lr.ID, TickerID: t}).Error; err != nil {
					return unavailable(err, "create list %q", l.ListName)
				}
			}
		}
		return nil
	})
}

func (s *GormStore) CountUsers(ctx context.Context) (int64, error) {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int64
	if err := db.Model(&userRow{}).Count(&n).Error; err != nil {
		return 0, unavailable(err, "count users")
	}
	return n, nil
}

func (s *GormStore) findList(tx *gorm.DB, userID, listName string) (*listRow, error) {
	var list listRow
	err := tx.Where("user_id = ? AND list_name = ?", userID, listName).First(&list).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err, "find list %q", listName)
	}
	return &list, nil
}

// lockList is findList holding the row until the transaction ends, so a
// concurrent add and list removal are applied one after the other.
func (s *GormStore) lockList(tx *gorm.DB, userID, listName string) (*listRow, error) {
	return s.findList(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID, listName)
}

func (s *GormStore) ConditionalAddTicker(ctx context.Context, userID, listName, tickerID string) (AddResult, error) {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	var res AddResult
	err := db.Transaction(func(tx *gorm.DB) error {
		list, err := s.lockList(tx, userID, listName)
		if err != nil {
			return err
		}

		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&listTickerRow{ListID: list.ID, TickerID: tickerID, CreatedAt: time.Now().UTC()})
		if insert.Error != nil {
			return unavailable(insert.Error, "add ticker to %q", listName)
		}
		res.Applied = insert.RowsAffected == 1

		var count int64
		if err := tx.Model(&listTickerRow{}).Where("list_id = ?", list.ID).Count(&count).Error; err != nil {
			return unavailable(err, "count list %q", listName)
		}
		res.Count = int(count)
		return nil
	})
	if err != nil {
		return AddResult{}, err
	}
	return res, nil
}

func (s *GormStore) RemoveTicker(ctx context.Context, userID, listName, tickerID string) (bool, error) {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	var applied bool
	err := db.Transaction(func(tx *gorm.DB) error {
		list, err := s.findList(tx, userID, listName)
		if err != nil {
			return err
		}
		del := tx.Where("list_id = ? AND ticker_id = ?", list.ID, tickerID).Delete(&listTickerRow{})
		if del.Error != nil {
			return unavailable(del.Error, "remove ticker from %q", listName)
		}
		applied = del.RowsAffected > 0
		return nil
	})
	return applied, err
}

func (s *GormStore) AddList(ctx context.Context, userID, listName string) error {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	return db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userRow{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return unavailable(err, "add list %q", listName)
		}
		if n == 0 {
			return ErrNotFound
		}
		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&listRow{UserID: userID, ListName: listName, CreatedAt: time.Now().UTC()})
		if insert.Error != nil {
			return unavailable(insert.Error, "add list %q", listName)
		}
		if insert.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	})
}

func (s *GormStore) RemoveList(ctx context.Context, userID, listName string) (bool, error) {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	var matched bool
	err := db.Transaction(func(tx *gorm.DB) error {
		list, err := s.lockList(tx, userID, listName)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("list_id = ?", list.ID).Delete(&listTickerRow{}).Error; err != nil {
			return unavailable(err, "remove list %q", listName)
		}
		if err := tx.Delete(&listRow{}, list.ID).Error; err != nil {
			return unavailable(err, "remove list %q", listName)
		}
		matched = true
		return nil
	})
	return matched, err
}

func (s *GormStore) SetAccountType(ctx context.Context, userID string, accountType models.AccountType) (bool, error) {
	if !models.ValidID(userID) {
		return false, nil
	}
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	// RowsAffected would be 0 for an unchanged value on some drivers, so the
	// match is decided by an existence check in the same transaction.
	var matched bool
	err := db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userRow{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return unavailable(err, "set account type")
		}
		if n == 0 {
			return nil
		}
		upd := tx.Model(&userRow{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"account_type": string(accountType),
			"updated_at":   time.Now().UTC(),
		})
		if upd.Error != nil {
			return unavailable(upd.Error, "set account type")
		}
		matched = true
		return nil
	})
	return matched, err
}

func (s *GormStore) FindTickerByID(ctx context.Context, tickerID string) (*models.Ticker, error) {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	var row tickerRow
	if err := db.First(&row, "id = ?", tickerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err, "find ticker %s", tickerID)
	}
	tickers, err := s.attachTransactions(db, []tickerRow{row})
	if err != nil {
		return nil, err
	}
	return &tickers[0], nil
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (s *GormStore) SearchTickers(ctx context.Context, term string, limit int) ([]models.Ticker, error) {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	pattern := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
	var rows []tickerRow
	q := db.Where(`LOWER(symbol) LIKE ? ESCAPE '\' OR LOWER(trading_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("symbol")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, unavailable(err, "search tickers")
	}
	return s.attachTransactions(db, rows)
}

func (s *GormStore) attachTransactions(db *gorm.DB, rows []tickerRow) ([]models.Ticker, error) {
	out := make([]models.Ticker, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		index[r.ID] = i
		out[i] = models.Ticker{ID: r.ID, Symbol: r.Symbol, TradingName: r.TradingName, Transactions: []models.Transaction{}}
	}

	var txs []transactionRow
	if err := db.Where("ticker_id IN ?", ids).Order("date, id").Find(&txs).Error; err != nil {
		return nil, unavailable(err, "load transactions")
	}
	for _, t := range txs {
		i := index[t.TickerID]
		out[i].Transactions = append(out[i].Transactions, models.Transaction{
			Date:          t.Date,
			AdjustedClose: t.AdjustedClose,
			Volume:        t.Volume,
		})
	}
	return out, nil
}

// PutTicker stores a ticker and replaces its transaction series. It is used
// by ingestion tooling and tests; the API never writes tickers.
func (s *GormStore) PutTicker(ctx context.Context, t *models.Ticker) error {
	if t.ID == "" {
		t.ID = models.NewID()
	}
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	return db.Transaction(func(tx *gorm.DB) error {
		row := tickerRow{ID: t.ID, Symbol: t.Symbol, TradingName: t.TradingName}
		if err := tx.Save(&row).Error; err != nil {
			return unavailable(err, "put ticker")
		}
		if err := tx.Where("ticker_id = ?", t.ID).Delete(&transactionRow{}).Error; err != nil {
			return unavailable(err, "put ticker")
		}
		for _, tr := range t.Transactions {
			r := transactionRow{TickerID: t.ID, Date: tr.Date, AdjustedClose: tr.AdjustedClose, Volume: tr.Volume}
			if err := tx.Create(&r).Error; err != nil {
				return unavailable(err, "put ticker")
			}
		}
		return nil
	})
}

func (s *GormStore) ListTerms(ctx context.Context) ([]models.GlossaryTerm, error) {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []glossaryRow
	if err := db.Order("term").Find(&rows).Error; err != nil {
		return nil, unavailable(err, "list glossary")
	}
	terms := make([]models.GlossaryTerm, len(rows))
	for i, r := range rows {
		terms[i] = models.GlossaryTerm{ID: r.ID, Term: r.Term, Description: r.Description}
	}
	return terms, nil
}

func (s *GormStore) GetTerm(ctx context.Context, termID string) (*models.GlossaryTerm, error) {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	var row glossaryRow
	if err := db.First(&row, "id = ?", termID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err, "get glossary term %s", termID)
	}
	return &models.GlossaryTerm{ID: row.ID, Term: row.Term, Description: row.Description}, nil
}

// PutTerm stores a glossary term.
func (s *GormStore) PutTerm(ctx context.Context, term *models.GlossaryTerm) error {
	if term.ID == "" {
		term.ID = models.NewID()
	}
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	row := glossaryRow{ID: term.ID, Term: term.Term, Description: term.Description}
	if err := db.Save(&row).Error; err != nil {
		return unavailable(err, "put glossary term")
	}
	return nil
}
