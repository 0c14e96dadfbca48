package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

var _ repository.SalesLedger = (*SalesLedger)(nil)

// RetailersCollection documentos de minorista con sus ventas embebidas.
const RetailersCollection = "retailers"

// saleDoc venta embebida en el documento del minorista.
type saleDoc struct {
	ID        string               `bson:"id"`
	ProductID string               `bson:"product_id"`
	Units     int64                `bson:"units"`
	Price     primitive.Decimal128 `bson:"price"`
	SoldAt    primitive.DateTime   `bson:"sold_at"`
}

// SalesLedger libro de ventas sobre MongoDB: {_id: retailerID, sales: [...]}.
type SalesLedger struct {
	collection *mongo.Collection
}

// NewSalesLedger construye el adaptador sobre la colección de minoristas.
func NewSalesLedger(db *mongo.Database) *SalesLedger {
	return &SalesLedger{collection: db.Collection(RetailersCollection)}
}

// soldPipeline agrega las unidades vendidas del producto para los minoristas indicados.
func soldPipeline(productID string, retailerIDs []string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": bson.M{"$in": retailerIDs}}}},
		{{Key: "$unwind", Value: "$sales"}},
		{{Key: "$match", Value: bson.M{"sales.product_id": productID}}},
		{{Key: "$group", Value: bson.M{"_id": "$_id", "sold": bson.M{"$sum": "$sales.units"}}}},
	}
}

// SoldByRetailers suma de unidades vendidas del producto por minorista.
func (l *SalesLedger) SoldByRetailers(ctx context.Context, productID string, retailerIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(retailerIDs))
	if len(retailerIDs) == 0 {
		return out, nil
	}
	cursor, err := l.collection.Aggregate(ctx, soldPipeline(productID, retailerIDs))
	if err != nil {
		return nil, fmt.Errorf("aggregate sales: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		RetailerID string `bson:"_id"`
		Sold       int64  `bson:"sold"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode sales: %w", err)
	}
	for _, r := range rows {
		out[r.RetailerID] = r.Sold
	}
	return out, nil
}

// Record agrega la venta al documento del minorista (lo crea si no existe). Idempotente por ID de venta.
func (l *SalesLedger) Record(ctx context.Context, ev *entity.SalesEvent) error {
	doc, err := toSaleDoc(ev)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": ev.RetailerID, "sales.id": bson.M{"$ne": ev.ID}}
	update := bson.M{"$push": bson.M{"sales": doc}}
	_, err = l.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// el minorista existe y ya tiene esta venta: el filtro no coincidió y el upsert chocó con _id
		return nil
	}
	if err != nil {
		return fmt.Errorf("record sale: %w", err)
	}
	return nil
}

func toSaleDoc(ev *entity.SalesEvent) (saleDoc, error) {
	price, err := primitive.ParseDecimal128(ev.Price.String())
	if err != nil {
		return saleDoc{}, fmt.Errorf("sale price: %w", err)
	}
	return saleDoc{
		ID:        ev.ID,
		ProductID: ev.ProductID,
		Units:     ev.Units,
		Price:     price,
		SoldAt:    primitive.NewDateTimeFromTime(ev.SoldAt),
	}, nil
}
