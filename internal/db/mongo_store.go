package db

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bullsai/watchlist/internal/models"
)

// Collection and field names follow the documents written by the web client.
const (
	usersCollection    = "users"
	tickersCollection  = "ticker_data"
	glossaryCollection = "glossary"
)

type userDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Email       string             `bson:"email"`
	FirstName   string             `bson:"first_name,omitempty"`
	Password    string             `bson:"password"`
	AccountType string             `bson:"account_type"`
	FavList     []favListDoc       `bson:"favList"`
	CreatedAt   time.Time          `bson:"created_at,omitempty"`
}

type favListDoc struct {
	ListName string   `bson:"list_name"`
	Tickers  []string `bson:"tickers"`
}

type tickerDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Symbol       string             `bson:"symbol"`
	TradingName  string             `bson:"trading_name"`
	Transactions []transactionDoc   `bson:"transactions"`
}

type transactionDoc struct {
	Date     time.Time `bson:"Date"`
	AdjClose float64   `bson:"Adj Close"`
	Volume   int64     `bson:"Volume"`
}

type glossaryDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Term        string             `bson:"term"`
	Description string             `bson:"description"`
}

func (d userDoc) toModel() *models.User {
	u := &models.User{
		ID:             d.ID.Hex(),
		Email:          d.Email,
		FirstName:      d.FirstName,
		HashedPassword: d.Password,
		AccountType:    models.AccountType(d.AccountType),
		CreatedAt:      d.CreatedAt,
		FavoriteLists:  make([]models.FavoriteList, 0, len(d.FavList)),
	}
	if !u.AccountType.Valid() {
		u.AccountType = models.AccountBasic
	}
	for _, l := range d.FavList {
		tickers := l.Tickers
		if tickers == nil {
			tickers = []string{}
		}
		u.FavoriteLists = append(u.FavoriteLists, models.FavoriteList{ListName: l.ListName, Tickers: tickers})
	}
	return u
}

func (d tickerDoc) toModel() models.Ticker {
	t := models.Ticker{
		ID:           d.ID.Hex(),
		Symbol:       d.Symbol,
		TradingName:  d.TradingName,
		Transactions: make([]models.Transaction, len(d.Transactions)),
	}
	for i, tr := range d.Transactions {
		t.Transactions[i] = models.Transaction{
			Date:          tr.Date,
			AdjustedClose: decimal.NewFromFloat(tr.AdjClose),
			Volume:        tr.Volume,
		}
	}
	return t
}

// MongoStore is the document Store backend.
type MongoStore struct {
	db      *mongo.Database
	timeout time.Duration
}

// NewMongoStore wraps db. Every call is bounded by timeout.
func NewMongoStore(db *mongo.Database, timeout time.Duration) *MongoStore {
	return &MongoStore{db: db, timeout: timeout}
}

func (s *MongoStore) users() *mongo.Collection { return s.db.Collection(usersCollection) }
func (s *MongoStore) tickers() *mongo.Collection { return s.db.Collection(tickersCollection) }
func (s *MongoStore) glossary() *mongo.Collection { return s.db.Collection(glossaryCollection) }

// EnsureIndexes creates the unique email index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	return err
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.Client().Ping(ctx, nil); err != nil {
		return unavailable(err, "ping")
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

func (s *MongoStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc userDoc
	if err := s.users().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err, "get user %s", userID)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc userDoc
	if err := s.users().FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err, "get user by email")
	}
	return doc.toModel(), nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	oid := primitive.NewObjectID()
	if user.ID != "" {
		var err error
		if oid, err = primitive.ObjectIDFromHex(user.ID); err != nil {
			return errors.Wrap(err, "create user")
		}
	}
	if user.AccountType == "" {
		user.AccountType = models.AccountBasic
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.ID = oid.Hex()
	user.Email = strings.ToLower(user.Email)

	doc := userDoc{
		ID:          oid,
		Email:       user.Email,
		FirstName:   user.FirstName,
		Password:    user.HashedPassword,
		AccountType: string(user.AccountType),
		FavList:     make([]favListDoc, 0, len(user.FavoriteLists)),
		CreatedAt:   user.CreatedAt,
	}
	for _, l := range user.FavoriteLists {
		tickers := l.Tickers
		if tickers == nil {
			tickers = []string{}
		}
		doc.FavList = append(doc.FavList, favListDoc{ListName: l.ListName, Tickers: tickers})
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.users().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return unavailable(err, "create user")
	}
	return nil
}

func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.users().CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, unavailable(err, "count users")
	}
	return n, nil
}

// listExists distinguishes a missing list from a failed conditional update.
func (s *MongoStore) listExists(ctx context.Context, oid primitive.ObjectID, listName string) (*favListDoc, error) {
	var doc userDoc
	err := s.users().FindOne(ctx,
		bson.M{"_id": oid, "favList.list_name": listName},
		options.FindOne().SetProjection(bson.M{"favList": 1}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err, "find list %q", listName)
	}
	for i := range doc.FavList {
		if doc.FavList[i].ListName == listName {
			return &doc.FavList[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *MongoStore) ConditionalAddTicker(ctx context.Context, userID, listName, tickerID string) (AddResult, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return AddResult{}, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.M{
		"_id": oid,
		"favList": bson.M{"$elemMatch": bson.M{
			"list_name": listName,
			"tickers":   bson.M{"$ne": tickerID},
		}},
	}
	update := bson.M{"$push": bson.M{"favList.$.tickers": tickerID}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"favList": 1})

	var doc userDoc
	err = s.users().FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		for _, l := range doc.FavList {
			if l.ListName == listName {
				return AddResult{Applied: true, Count: len(l.Tickers)}, nil
			}
		}
		return AddResult{Applied: true}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return AddResult{}, unavailable(err, "add ticker to %q", listName)
	}

	list, err := s.listExists(ctx, oid, listName)
	if err != nil {
		return AddResult{}, err
	}
	return AddResult{Applied: false, Count: len(list.Tickers)}, nil
}

func (s *MongoStore) RemoveTicker(ctx context.Context, userID, listName, tickerID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.users().UpdateOne(ctx,
		bson.M{"_id": oid, "favList": bson.M{"$elemMatch": bson.M{"list_name": listName, "tickers": tickerID}}},
		bson.M{"$pull": bson.M{"favList.$.tickers": tickerID}},
	)
	if err != nil {
		return false, unavailable(err, "remove ticker from %q", listName)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	if _, err := s.listExists(ctx, oid, listName); err != nil {
		return false, err
	}
	return false, nil
}

func (s *MongoStore) AddList(ctx context.Context, userID, listName string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.users().UpdateOne(ctx,
		bson.M{"_id": oid, "favList.list_name": bson.M{"$ne": listName}},
		bson.M{"$push": bson.M{"favList": favListDoc{ListName: listName, Tickers: []string{}}}},
	)
	if err != nil {
		return unavailable(err, "add list %q", listName)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.users().CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return unavailable(err, "add list %q", listName)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *MongoStore) RemoveList(ctx context.Context, userID, listName string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.users().UpdateOne(ctx,
		bson.M{"_id": oid, "favList.list_name": listName},
		bson.M{"$pull": bson.M{"favList": bson.M{"list_name": listName}}},
	)
	if err != nil {
		return false, unavailable(err, "remove list %q", listName)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) SetAccountType(ctx context.Context, userID string, accountType models.AccountType) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.users().UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"account_type": string(accountType)}},
	)
	if err != nil {
		return false, unavailable(err, "set account type")
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) FindTickerByID(ctx context.Context, tickerID string) (*models.Ticker, error) {
	oid, err := primitive.ObjectIDFromHex(tickerID)
	if err != nil {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc tickerDoc
	if err := s.tickers().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err, "find ticker %s", tickerID)
	}
	t := doc.toModel()
	return &t, nil
}

func (s *MongoStore) SearchTickers(ctx context.Context, term string, limit int) ([]models.Ticker, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(term)), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"symbol": pattern},
		bson.M{"trading_name": pattern},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "symbol", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.tickers().Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable(err, "search tickers")
	}
	var docs []tickerDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, unavailable(err, "search tickers")
	}
	out := make([]models.Ticker, len(docs))
	for i, d := range docs {
		out[i] = d.toModel()
	}
	return out, nil
}

func (s *MongoStore) ListTerms(ctx context.Context) ([]models.GlossaryTerm, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := s.glossary().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "term", Value: 1}}))
	if err != nil {
		return nil, unavailable(err, "list glossary")
	}
	var docs []glossaryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, unavailable(err, "list glossary")
	}
	terms := make([]models.GlossaryTerm, len(docs))
	for i, d := range docs {
		terms[i] = models.GlossaryTerm{ID: d.ID.Hex(), Term: d.Term, Description: d.Description}
	}
	return terms, nil
}

func (s *MongoStore) GetTerm(ctx context.Context, termID string) (*models.GlossaryTerm, error) {
	oid, err := primitive.ObjectIDFromHex(termID)
	if err != nil {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc glossaryDoc
	if err := s.glossary().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err, "get glossary term %s", termID)
	}
	return &models.GlossaryTerm{ID: doc.ID.Hex(), Term: doc.Term, Description: doc.Description}, nil
}
