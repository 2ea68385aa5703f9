package watch

import (
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-sql/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

func defaultInsertArgs(topic string, msgs message.Messages) ([]interface{}, error) {
	var args []interface{}
	for _, msg := range msgs {
		metadata, err := json.Marshal(msg.Metadata)
		if err != nil {
			return nil, errors.Wrapf(err, "could not marshal metadata into JSON for message %s", msg.UUID)
		}

		args = append(args, topic, msg.UUID, []byte(msg.Payload), metadata)
	}

	return args, nil
}

// MySQLSchema keeps the events of every topic of a stream in one table,
// distinguished by the topic column.
type MySQLSchema struct {
	sql.DefaultMySQLSchema

	StreamName      string
	OffsetFieldName string
}

func (s MySQLSchema) SchemaInitializingQueries(topic string) []string {
	return []string{fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			topic VARCHAR(255) NOT NULL,
			uuid VARCHAR(36) NOT NULL,
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			payload JSON DEFAULT NULL,
			metadata JSON DEFAULT NULL,
			KEY topic_idx (topic)
		);`, s.MessagesTable(s.StreamName), s.OffsetFieldName)}
}

func (s MySQLSchema) SelectQuery(topic string, consumerGroup string, offsetsAdapter sql.OffsetsAdapter) (string, []interface{}) {
	nextOffsetQuery, nextOffsetArgs := offsetsAdapter.NextOffsetQuery(topic, consumerGroup)
	selectQuery := fmt.Sprintf(`
		SELECT %s as offset, uuid, payload, metadata FROM %s
		WHERE
			%s > (%s) AND topic=?
		ORDER BY
			%s ASC
		LIMIT 1`,
		s.OffsetFieldName, s.MessagesTable(s.StreamName),
		s.OffsetFieldName, nextOffsetQuery,
		s.OffsetFieldName)

	return selectQuery, append(nextOffsetArgs, topic)
}

func (s MySQLSchema) InsertQuery(topic string, msgs message.Messages) (string, []interface{}, error) {
	insertQuery := fmt.Sprintf(
		`INSERT INTO %s (topic, uuid, payload, metadata) VALUES %s`,
		s.MessagesTable(s.StreamName),
		strings.TrimRight(strings.Repeat(`(?,?,?,?),`, len(msgs)), ","),
	)

	args, err := defaultInsertArgs(topic, msgs)
	if err != nil {
		return "", nil, err
	}

	return insertQuery, args, nil
}

type MySQLOffsetSchema struct {
	sql.DefaultMySQLOffsetsAdapter

	StreamName string
}

func (a MySQLOffsetSchema) SchemaInitializingQueries(topic string) []string {
	return []string{`
		CREATE TABLE IF NOT EXISTS ` + a.MessagesOffsetsTable(a.StreamName) + ` (
			consumer_group VARCHAR(255) NOT NULL,
			topic VARCHAR(255) NOT NULL,
			offset_acked BIGINT,
			offset_consumed BIGINT NOT NULL,
			PRIMARY KEY(consumer_group, topic)
		);`}
}

func (a MySQLOffsetSchema) AckMessageQuery(topic string, offset int, consumerGroup string) (string, []interface{}) {
	ackQuery := `UPDATE ` + a.MessagesOffsetsTable(a.StreamName) + ` SET offset_acked = ? WHERE consumer_group = ? AND topic = ?`
	return ackQuery, []interface{}{offset, consumerGroup, topic}
}

func (a MySQLOffsetSchema) NextOffsetQuery(topic, consumerGroup string) (string, []interface{}) {
	return `SELECT COALESCE(
				(SELECT offset_acked
				 FROM ` + a.MessagesOffsetsTable(a.StreamName) + `
				 WHERE consumer_group=? AND topic=? FOR UPDATE
				), 0)`,
		[]interface{}{consumerGroup, topic}
}

func (a MySQLOffsetSchema) ConsumedMessageQuery(
	topic string,
	offset int,
	consumerGroup string,
	consumerULID []byte,
) (string, []interface{}) {
	// offset_consumed is not queried anywhere, it's used only to detect race conditions with NextOffsetQuery.
	ackQuery := `INSERT INTO ` + a.MessagesOffsetsTable(a.StreamName) + ` (offset_consumed, consumer_group, topic)
		VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE offset_consumed=VALUES(offset_consumed)`
	return ackQuery, []interface{}{offset, consumerGroup, topic}
}

// SQLConfig configures the MySQL backed pubsub.
type SQLConfig struct {
	// StreamName names the tables holding the events, watermill_<stream> and
	// watermill_offsets_<stream>.
	StreamName string
	// ConsumerGroup tracks the acknowledged offset. Every process that must
	// see every event needs its own group.
	ConsumerGroup string
	PollInterval  time.Duration
}

func (c SQLConfig) schemas() (MySQLSchema, MySQLOffsetSchema) {
	return MySQLSchema{StreamName: c.StreamName, OffsetFieldName: "offset_msg"},
		MySQLOffsetSchema{StreamName: c.StreamName}
}

type sqlPubSub struct {
	*sql.Publisher
	*sql.Subscriber
}

func (p *sqlPubSub) Close() error {
	pubErr := p.Publisher.Close()
	subErr := p.Subscriber.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}

// NewSQLPubSub returns a pubsub that persists events in MySQL so that
// stores and watchers may live in different processes. The tables must exist,
// see InitializeSQLSchema.
func NewSQLPubSub(db *stdsql.DB, cfg SQLConfig, logger watermill.LoggerAdapter) (PubSub, error) {
	if cfg.StreamName == "" {
		return nil, fmt.Errorf("the stream name can't be empty")
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	schemaAdapter, offsetsAdapter := cfg.schemas()

	pub, err := sql.NewPublisher(db, sql.PublisherConfig{
		SchemaAdapter:        schemaAdapter,
		AutoInitializeSchema: false,
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "create sql publisher")
	}

	sub, err := sql.NewSubscriber(db, sql.SubscriberConfig{
		ConsumerGroup:  cfg.ConsumerGroup,
		PollInterval:   cfg.PollInterval,
		SchemaAdapter:  schemaAdapter,
		OffsetsAdapter: offsetsAdapter,
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "create sql subscriber")
	}

	return &sqlPubSub{Publisher: pub, Subscriber: sub}, nil
}

// InitializeSQLSchema creates the event tables of the stream.
func InitializeSQLSchema(db *stdsql.DB, streamName string) error {
	schemaAdapter, offsetsAdapter := SQLConfig{StreamName: streamName}.schemas()
	queries := append(schemaAdapter.SchemaInitializingQueries(streamName), offsetsAdapter.SchemaInitializingQueries(streamName)...)
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return errors.Wrapf(err, "initialize stream %q", streamName)
		}
	}
	return nil
}
