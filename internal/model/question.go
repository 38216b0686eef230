package model

// Choice is one of a question's options. Exactly one per question is correct.
type Choice struct {
	ID      string `json:"id" bson:"id"`
	Label   string `json:"label" bson:"label"`
	Correct bool   `json:"correct" bson:"correct"`
}

// Question is a flag-identification question from the bank. The game core
// reads questions by id and never mutates them.
type Question struct {
	ID       string   `json:"id" bson:"_id"`
	FlagName string   `json:"flagName" bson:"flagName"`
	Prompt   string   `json:"prompt" bson:"prompt"`
	ImageURL string   `json:"imageUrl" bson:"imageUrl"`
	Choices  []Choice `json:"choices" bson:"choices"`
}

// CorrectChoiceID returns the id of the marked-correct choice.
func (q *Question) CorrectChoiceID() string {
	for _, c := range q.Choices {
		if c.Correct {
			return c.ID
		}
	}
	return ""
}

// ChoiceView is a choice with the correct flag stripped.
type ChoiceView struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// QuestionView is the public question representation sent to clients.
// It never carries the correct-answer flag.
type QuestionView struct {
	ID       string       `json:"id"`
	Prompt   string       `json:"prompt"`
	ImageURL string       `json:"imageUrl"`
	Choices  []ChoiceView `json:"choices"`
}

func (q *Question) View() QuestionView {
	choices := make([]ChoiceView, len(q.Choices))
	for i, c := range q.Choices {
		choices[i] = ChoiceView{ID: c.ID, Label: c.Label}
	}
	return QuestionView{
		ID:       q.ID,
		Prompt:   q.Prompt,
		ImageURL: q.ImageURL,
		Choices:  choices,
	}
}
