package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"guessflag/internal/model"
)

type seedFlag struct {
	code             string
	name             string
	incorrectAnswers []string
}

var seedData = []seedFlag{
	{"us", "United States", []string{"Canada", "Mexico", "United Kingdom"}},
	{"ca", "Canada", []string{"United States", "Australia", "Germany"}},
	{"de", "Germany", []string{"France", "Italy", "Spain"}},
	{"jp", "Japan", []string{"China", "South Korea", "Thailand"}},
	{"br", "Brazil", []string{"Argentina", "Portugal", "Colombia"}},
	{"fr", "France", []string{"Netherlands", "Belgium", "Luxembourg"}},
	{"it", "Italy", []string{"Ireland", "Hungary", "Mexico"}},
	{"es", "Spain", []string{"Portugal", "Colombia", "Venezuela"}},
	{"gb", "United Kingdom", []string{"Australia", "New Zealand", "Ireland"}},
	{"au", "Australia", []string{"New Zealand", "United Kingdom", "Fiji"}},
	{"cn", "China", []string{"Vietnam", "Taiwan", "North Korea"}},
	{"in", "India", []string{"Niger", "Ireland", "Ivory Coast"}},
	{"mx", "Mexico", []string{"Italy", "Ireland", "Hungary"}},
	{"nl", "Netherlands", []string{"Luxembourg", "France", "Russia"}},
	{"se", "Sweden", []string{"Norway", "Denmark", "Finland"}},
	{"no", "Norway", []string{"Denmark", "Iceland", "Sweden"}},
	{"ch", "Switzerland", []string{"Denmark", "Austria", "Georgia"}},
	{"kr", "South Korea", []string{"Japan", "Taiwan", "Mongolia"}},
	{"za", "South Africa", []string{"Kenya", "Zimbabwe", "Mozambique"}},
	{"ar", "Argentina", []string{"Uruguay", "Honduras", "El Salvador"}},
	{"pt", "Portugal", []string{"Spain", "Morocco", "Senegal"}},
	{"gr", "Greece", []string{"Uruguay", "Israel", "Finland"}},
	{"tr", "Turkey", []string{"Tunisia", "Morocco", "Algeria"}},
	{"eg", "Egypt", []string{"Yemen", "Syria", "Iraq"}},
	{"ng", "Nigeria", []string{"Ghana", "Cameroon", "Senegal"}},
}

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	database := os.Getenv("MONGO_DATABASE")
	if database == "" {
		database = "guessflag"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	coll := client.Database(database).Collection("questions")

	// Reseed from scratch so repeated runs don't duplicate questions.
	if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
		log.Fatalf("Failed to clear questions: %v", err)
	}

	docs := make([]interface{}, 0, len(seedData))
	for _, f := range seedData {
		docs = append(docs, buildQuestion(f))
	}

	if _, err := coll.InsertMany(ctx, docs); err != nil {
		log.Fatalf("Failed to insert questions: %v", err)
	}

	log.Printf("Seeded %d flag questions into %s.questions", len(docs), database)
}

func buildQuestion(f seedFlag) *model.Question {
	qid := "q_" + f.code

	labels := append([]string{f.name}, f.incorrectAnswers...)
	rand.Shuffle(len(labels), func(i, j int) {
		labels[i], labels[j] = labels[j], labels[i]
	})

	choices := make([]model.Choice, len(labels))
	for i, label := range labels {
		choices[i] = model.Choice{
			ID:      fmt.Sprintf("%s_c%d", qid, i+1),
			Label:   label,
			Correct: label == f.name,
		}
	}

	return &model.Question{
		ID:       qid,
		FlagName: f.name,
		Prompt:   "Which country does this flag belong to?",
		ImageURL: fmt.Sprintf("https://flagpedia.net/data/flags/w580/%s.png", f.code),
		Choices:  choices,
	}
}
