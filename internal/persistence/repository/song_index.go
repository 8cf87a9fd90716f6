package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// songDocument adds a text field so the key itself is searchable; Mongo text
// indexes cannot cover _id.
type songDocument struct {
	ID               string   `bson:"_id"`
	Bucket           string   `bson:"bucket"`
	CreatedTimestamp string   `bson:"created_timestamp"`
	Labels           []string `bson:"labels"`
	SearchText       string   `bson:"search_text"`
}

func toSongDocument(id string, record domain.IndexRecord) songDocument {
	return songDocument{
		ID:               id,
		Bucket:           record.Bucket,
		CreatedTimestamp: record.CreatedTimestamp,
		Labels:           record.Labels,
		SearchText:       searchText(id),
	}
}

// searchText splits a key such as "indie/Blue_Sky-live.mp3" into words.
func searchText(key string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(key), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}), " ")
}

func (d songDocument) record() domain.IndexRecord {
	labels := d.Labels
	if labels == nil {
		labels = []string{}
	}
	return domain.IndexRecord{
		ObjectKey:        d.ID,
		Bucket:           d.Bucket,
		CreatedTimestamp: d.CreatedTimestamp,
		Labels:           labels,
	}
}

// SongIndex implements domain.SearchIndex on a MongoDB text index.
type SongIndex struct {
	db *mongo.Database
}

func NewSongIndex(db *mongo.Database) *SongIndex {
	return &SongIndex{db: db}
}

func (r *SongIndex) Upsert(ctx context.Context, id string, record domain.IndexRecord) error {
	collection := r.db.Collection(db.SongIndexCollection)

	opts := options.Replace().SetUpsert(true)
	_, err := collection.ReplaceOne(ctx, bson.M{"_id": id}, toSongDocument(id, record), opts)
	return err
}

func (r *SongIndex) Get(ctx context.Context, id string) (domain.IndexRecord, error) {
	collection := r.db.Collection(db.SongIndexCollection)

	var doc songDocument
	if err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.IndexRecord{}, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
		}
		return domain.IndexRecord{}, err
	}

	return doc.record(), nil
}

func (r *SongIndex) Query(ctx context.Context, q domain.Query) ([]domain.IndexRecord, error) {
	collection := r.db.Collection(db.SongIndexCollection)

	filter, opts := buildMongoQuery(q)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []songDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]domain.IndexRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc.record())
	}

	return records, nil
}

func buildMongoQuery(q domain.Query) (bson.M, *options.FindOptions) {
	opts := options.Find().SetLimit(int64(q.Size))

	if q.Mode == domain.QueryExact {
		return bson.M{"_id": q.Term}, opts
	}

	score := bson.M{"$meta": "textScore"}
	opts.SetProjection(bson.M{"score": score}).SetSort(bson.D{{Key: "score", Value: score}})

	return bson.M{"$text": bson.M{"$search": q.Term}}, opts
}

func (r *SongIndex) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.SongIndexCollection)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "labels", Value: "text"},
			{Key: "search_text", Value: "text"},
		},
		Options: options.Index().SetName("song_text"),
	})
	return err
}
