package task

import (
	"context"
	"time"

	"go-taskboard/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskRepository defines the interface for task persistence
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Task, error)
	FindAll(ctx context.Context, filter bson.M, page, limit int64) ([]Task, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error
	PushStatusHistory(ctx context.Context, id primitive.ObjectID, entry StatusHistoryEntry) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// TaskRepositoryImpl implements TaskRepository
type TaskRepositoryImpl struct {
	collection *mongo.Collection
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.MongodbDB) TaskRepository {
	return &TaskRepositoryImpl{
		collection: db.DB.Collection("tasks"),
	}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *Task) error {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, task)
	if err != nil {
		return err
	}
	task.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *TaskRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Task, error) {
	var task Task
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepositoryImpl) FindAll(ctx context.Context, filter bson.M, page, limit int64) ([]Task, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var tasks []Task
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error {
	updates["updated_at"] = time.Now()
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	return err
}

func (r *TaskRepositoryImpl) PushStatusHistory(ctx context.Context, id primitive.ObjectID, entry StatusHistoryEntry) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"status_history": entry},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	return err
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
