package syncgateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vfg2006/billing-manager-api/internal/config"
)

const connectTimeout = 10 * time.Second

// MongoGateway implementa Gateway sobre um banco de documentos MongoDB.
type MongoGateway struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoGateway conecta no MongoDB configurado e valida a conexão com um
// ping antes de devolver o gateway.
func NewMongoGateway(ctx context.Context, cfg *config.Sync) (*MongoGateway, error) {
	clientOptions := options.Client().ApplyURI(cfg.MongoURI)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}

	return &MongoGateway{
		client:   client,
		database: client.Database(cfg.MongoDatabase),
	}, nil
}

// Authenticate valida o acesso ao banco e devolve um token de sessão opaco.
// A autorização por usuário fica no serviço de autenticação; aqui só se
// confirma que o armazenamento remoto aceita a conexão.
func (g *MongoGateway) Authenticate(ctx context.Context, credentials Credentials) (string, error) {
	if credentials.Username == "" || credentials.Password == "" {
		return "", ErrAuth
	}

	if err := g.client.Ping(ctx, readpref.Primary()); err != nil {
		return "", errors.Wrap(ErrUnavailable, err.Error())
	}

	return uuid.NewString(), nil
}

func (g *MongoGateway) Create(ctx context.Context, collection string, record Record) (string, error) {
	result, err := g.database.Collection(collection).InsertOne(ctx, bson.M(record))
	if err != nil {
		return "", errors.Wrapf(err, "failed to insert document into %s", collection)
	}

	switch id := result.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		return id, nil
	default:
		return "", errors.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
}

// Update substitui o documento identificado, criando-o se não existir.
func (g *MongoGateway) Update(ctx context.Context, collection, id string, fields Record) error {
	filter := idFilter(id)

	doc := bson.M(fields)
	doc["updatedAt"] = time.Now()

	opts := options.Replace().SetUpsert(true)
	_, err := g.database.Collection(collection).ReplaceOne(ctx, filter, doc, opts)
	if err != nil {
		return errors.Wrapf(err, "failed to update document %s in %s", id, collection)
	}

	return nil
}

func (g *MongoGateway) Delete(ctx context.Context, collection, id string) error {
	_, err := g.database.Collection(collection).DeleteOne(ctx, idFilter(id))
	if err != nil {
		return errors.Wrapf(err, "failed to delete document %s from %s", id, collection)
	}

	return nil
}

func (g *MongoGateway) Query(ctx context.Context, collection string, filters Filters) ([]Record, error) {
	filter := bson.M{}
	for field, value := range filters {
		filter[field] = value
	}

	cursor, err := g.database.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", collection)
	}
	defer cursor.Close(ctx)

	var records []Record
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrapf(err, "failed to decode document from %s", collection)
		}
		records = append(records, Record(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrapf(err, "cursor failed on %s", collection)
	}

	return records, nil
}

// Subscribe abre um change stream na coleção e invoca onChange a cada
// documento inserido ou substituído que case com os filtros. O handle
// devolvido encerra o stream; deve ser chamado no logout.
func (g *MongoGateway) Subscribe(ctx context.Context, collection string, filters Filters, onChange func(Record)) (func(), error) {
	match := bson.M{"operationType": bson.M{"$in": bson.A{"insert", "update", "replace"}}}
	for field, value := range filters {
		match["fullDocument."+field] = value
	}

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := g.database.Collection(collection).Watch(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
	}, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to watch %s", collection)
	}

	streamCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer stream.Close(context.Background())

		for stream.Next(streamCtx) {
			var event struct {
				FullDocument bson.M `bson:"fullDocument"`
			}
			if err := stream.Decode(&event); err != nil {
				logrus.WithError(err).Warn("Falha ao decodificar evento do change stream")
				continue
			}
			if event.FullDocument != nil {
				onChange(Record(event.FullDocument))
			}
		}

		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			logrus.WithError(err).WithField("collection", collection).Error("Change stream encerrado com erro")
		}
	}()

	return cancel, nil
}

// Close encerra a conexão com o MongoDB.
func (g *MongoGateway) Close(ctx context.Context) error {
	return g.client.Disconnect(ctx)
}

// idFilter aceita tanto ObjectIDs hexadecimais quanto ids de string simples,
// já que chaves de meta usam a própria chave como id do documento.
func idFilter(id string) bson.M {
	if objectID, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": objectID}
	}
	return bson.M{"_id": id}
}
