package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"guessflag/internal/model"
)

type AnswerRepo interface {
	Create(ctx context.Context, answer *model.Answer) error
	GetBySessionAndQuestion(ctx context.Context, code, questionID string) ([]*model.Answer, error)
	GetByPlayer(ctx context.Context, playerID string) ([]*model.Answer, error)
	DeleteBySession(ctx context.Context, code string) error
}

type answerRepo struct {
	collection *mongo.Collection
}

func NewAnswerRepo(db *mongo.Database) AnswerRepo {
	return &answerRepo{
		collection: db.Collection("answers"),
	}
}

func (r *answerRepo) Create(ctx context.Context, answer *model.Answer) error {
	if answer.ID == "" {
		answer.ID = primitive.NewObjectID().Hex()
	}
	if answer.SubmittedAt.IsZero() {
		answer.SubmittedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, answer)
	return err
}

func (r *answerRepo) GetBySessionAndQuestion(ctx context.Context, code, questionID string) ([]*model.Answer, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"sessionCode": code, "questionId": questionID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var answers []*model.Answer
	if err = cursor.All(ctx, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *answerRepo) GetByPlayer(ctx context.Context, playerID string) ([]*model.Answer, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"playerId": playerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var answers []*model.Answer
	if err = cursor.All(ctx, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *answerRepo) DeleteBySession(ctx context.Context, code string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"sessionCode": code})
	return err
}
