package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/maiams/NomaCardHouse/internal/domain"
)

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection("carts")}
}

type cartDoc struct {
	CartID    string        `bson:"cart_id"`
	SessionID string        `bson:"session_id"`
	Items     []cartItemDoc `bson:"items"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
	ExpiresAt time.Time     `bson:"expires_at"`
}

type cartItemDoc struct {
	SKUID          string    `bson:"sku_id"`
	ProductName    string    `bson:"product_name"`
	SKUCode        string    `bson:"sku_code"`
	Quantity       int64     `bson:"quantity"`
	UnitPriceCents int64     `bson:"unit_price_cents"`
	ReservedUntil  time.Time `bson:"reserved_until"`
	AddedAt        time.Time `bson:"added_at"`
}

func toDoc(cart *domain.Cart) *cartDoc {
	doc := &cartDoc{
		CartID:    cart.ID.String(),
		SessionID: cart.SessionID,
		Items:     make([]cartItemDoc, 0, len(cart.Items)),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
		ExpiresAt: cart.ExpiresAt,
	}
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, cartItemDoc{
			SKUID:          item.SKUID.String(),
			ProductName:    item.ProductName,
			SKUCode:        item.SKUCode,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			ReservedUntil:  item.ReservedUntil,
			AddedAt:        item.AddedAt,
		})
	}
	return doc
}

func fromDoc(doc *cartDoc) (*domain.Cart, error) {
	cartID, err := uuid.Parse(doc.CartID)
	if err != nil {
		return nil, fmt.Errorf("invalid cart_id %q in cart document: %w", doc.CartID, err)
	}
	cart := &domain.Cart{
		ID:        cartID,
		SessionID: doc.SessionID,
		Items:     make([]domain.CartItem, 0, len(doc.Items)),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		ExpiresAt: doc.ExpiresAt,
	}
	for _, item := range doc.Items {
		skuID, err := uuid.Parse(item.SKUID)
		if err != nil {
			return nil, fmt.Errorf("invalid sku_id %q in cart document: %w", item.SKUID, err)
		}
		cart.Items = append(cart.Items, domain.CartItem{
			SKUID:          skuID,
			ProductName:    item.ProductName,
			SKUCode:        item.SKUCode,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			ReservedUntil:  item.ReservedUntil,
			AddedAt:        item.AddedAt,
		})
	}
	return cart, nil
}

func (m *MongoRepository) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var doc cartDoc
	err := m.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return fromDoc(&doc)
}

func (m *MongoRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	filter := bson.M{"session_id": cart.SessionID}
	update := bson.M{"$set": toDoc(cart)}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, sessionID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *MongoRepository) FindExpiredReservations(ctx context.Context, limit int) ([]*domain.Cart, error) {
	filter := bson.M{"items.reserved_until": bson.M{"$lt": time.Now()}}
	opts := options.Find().SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find carts with expired reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var carts []*domain.Cart
	for cursor.Next(ctx) {
		var doc cartDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode cart document: %w", err)
		}
		cart, err := fromDoc(&doc)
		if err != nil {
			return nil, err
		}
		carts = append(carts, cart)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration error: %w", err)
	}
	return carts, nil
}

// CreateIndexes sets up the session lookup index and a TTL index so
// Mongo reaps carts past their sliding expiration.
func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "items.reserved_until", Value: 1}},
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
