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

// CommentRepository defines the interface for task comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *Comment) error
	FindByTaskID(ctx context.Context, taskID primitive.ObjectID) ([]Comment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// CommentRepositoryImpl implements CommentRepository
type CommentRepositoryImpl struct {
	collection *mongo.Collection
}

// NewCommentRepository creates a new task comment repository
func NewCommentRepository(db *database.MongodbDB) CommentRepository {
	return &CommentRepositoryImpl{
		collection: db.DB.Collection("task_comments"),
	}
}

// Create inserts a new comment
func (r *CommentRepositoryImpl) Create(ctx context.Context, comment *Comment) error {
	comment.CreatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, comment)
	if err != nil {
		return err
	}
	comment.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByTaskID retrieves all comments for a task
func (r *CommentRepositoryImpl) FindByTaskID(ctx context.Context, taskID primitive.ObjectID) ([]Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"task_id": taskID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var comments []Comment
	if err = cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// Delete removes a comment
func (r *CommentRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
