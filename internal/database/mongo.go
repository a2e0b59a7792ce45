package database

import (
	"context"
	"errors"
	"fmt"

	"evcoupon/entity"
	"evcoupon/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionOperators = "operators"

// MongoDB is the staff directory: operators, their roles and API tokens.
type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	return &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entity.ErrNotFound
	}
	return fmt.Errorf("mongodb find: %w", err)
}

func (m *MongoDB) findOperator(filter bson.D) (*entity.Operator, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionOperators)
	var op entity.Operator
	if err = collection.FindOne(m.ctx, filter).Decode(&op); err != nil {
		return nil, m.findError(err)
	}
	return &op, nil
}

func (m *MongoDB) OperatorByToken(token string) (*entity.Operator, error) {
	if token == "" {
		return nil, entity.ErrNotFound
	}
	return m.findOperator(bson.D{{"token", token}})
}

func (m *MongoDB) OperatorByID(id int64) (*entity.Operator, error) {
	return m.findOperator(bson.D{{"id", id}})
}

// SaveOperator inserts or replaces the operator with the same id.
func (m *MongoDB) SaveOperator(op *entity.Operator) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionOperators)
	filter := bson.D{{"id", op.ID}}
	update := bson.D{{"$set", op}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

// EnsureIndexes makes id and token unique so a token always resolves to one operator.
func (m *MongoDB) EnsureIndexes() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionOperators)
	_, err = collection.Indexes().CreateMany(m.ctx, []mongo.IndexModel{
		{Keys: bson.D{{"id", 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{"token", 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("mongodb indexes: %w", err)
	}
	return nil
}
