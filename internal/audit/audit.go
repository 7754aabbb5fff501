// Package audit records status transitions and admin activity in MongoDB.
// Recording is best-effort: a missing or unreachable Mongo degrades to
// log-only, never to a failed request.
package audit

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StatusChange is one recorded transition on an order, listing, or offer.
type StatusChange struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	RelatedID   string             `bson:"related_id"`
	RelatedType string             `bson:"related_type"` // order, order_payment, listing, offer
	OldStatus   string             `bson:"old_status"`
	NewStatus   string             `bson:"new_status"`
	ChangedBy   string             `bson:"changed_by"`
	Timestamp   time.Time          `bson:"timestamp"`
	Note        string             `bson:"note,omitempty"`
}

// Activity is a free-form back-office action entry.
type Activity struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Action    string             `bson:"action"`
	Module    string             `bson:"module"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Recorder writes audit entries. The zero-value (nil client) recorder is a
// no-op, used when MONGO_URI is not configured.
type Recorder struct {
	client *mongo.Client
	db     string
}

// NewRecorder connects to Mongo. An empty uri returns a no-op recorder.
func NewRecorder(ctx context.Context, uri, dbName string) (*Recorder, error) {
	if uri == "" {
		return &Recorder{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	log.Printf("[AUDIT] Connected to MongoDB")

	return &Recorder{client: client, db: dbName}, nil
}

// Close disconnects from Mongo.
func (r *Recorder) Close(ctx context.Context) {
	if r.client == nil {
		return
	}
	if err := r.client.Disconnect(ctx); err != nil {
		log.Printf("[AUDIT] disconnect failed: %v", err)
	}
}

// RecordStatusChange saves a transition entry. Errors are logged only.
func (r *Recorder) RecordStatusChange(relatedID, relatedType, oldStatus, newStatus, changedBy string) {
	if r.client == nil {
		return
	}
	entry := StatusChange{
		RelatedID:   relatedID,
		RelatedType: relatedType,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		ChangedBy:   changedBy,
		Timestamp:   time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		coll := r.client.Database(r.db).Collection("status_history")
		if _, err := coll.InsertOne(ctx, entry); err != nil {
			log.Printf("[AUDIT] failed to record status change for %s %s: %v", relatedType, relatedID, err)
		}
	}()
}

// RecordActivity saves a back-office action entry. Errors are logged only.
func (r *Recorder) RecordActivity(userID, action, module string) {
	if r.client == nil {
		return
	}
	entry := Activity{
		UserID:    userID,
		Action:    action,
		Module:    module,
		CreatedAt: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		coll := r.client.Database(r.db).Collection("activity_log")
		if _, err := coll.InsertOne(ctx, entry); err != nil {
			log.Printf("[AUDIT] failed to record activity for %s: %v", userID, err)
		}
	}()
}
