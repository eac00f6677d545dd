package task

import (
	"testing"

	"go-taskboard/internal/features/user"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestResolveMentions(t *testing.T) {
	ana := user.User{ID: primitive.NewObjectID(), FirstName: "Ana", LastName: "Kovac"}
	ben := user.User{ID: primitive.NewObjectID(), FirstName: "Ben", LastName: "Silva"}
	benTwo := user.User{ID: primitive.NewObjectID(), FirstName: "Ben", LastName: "Okafor"}
	cara := user.User{ID: primitive.NewObjectID(), FirstName: "Cara", LastName: "Silva"}

	directory := []user.User{ana, ben, benTwo, cara}

	tests := []struct {
		name string
		body string
		want []primitive.ObjectID
	}{
		{
			name: "full name match",
			body: "ping @Ana Kovac about this",
			want: []primitive.ObjectID{ana.ID},
		},
		{
			name: "full name match is case insensitive",
			body: "@ana kovac please review",
			want: []primitive.ObjectID{ana.ID},
		},
		{
			name: "unique first name",
			body: "@Cara can you take a look",
			want: []primitive.ObjectID{cara.ID},
		},
		{
			name: "ambiguous first name resolves nobody",
			body: "@Ben what do you think",
			want: nil,
		},
		{
			name: "full name disambiguates shared first name",
			body: "@Ben Okafor what do you think",
			want: []primitive.ObjectID{benTwo.ID},
		},
		{
			name: "last name fallback",
			body: "@Okafor your turn",
			want: []primitive.ObjectID{benTwo.ID},
		},
		{
			name: "ambiguous last name resolves nobody",
			body: "@Silva your turn",
			want: nil,
		},
		{
			name: "first name wins over last name",
			body: "@Ana has context here",
			want: []primitive.ObjectID{ana.ID},
		},
		{
			name: "trailing word does not break single name match",
			body: "@Cara please merge",
			want: []primitive.ObjectID{cara.ID},
		},
		{
			name: "repeated mention deduplicates",
			body: "@Cara and again @Cara Silva",
			want: []primitive.ObjectID{cara.ID},
		},
		{
			name: "multiple mentions preserve order",
			body: "@Ana Kovac then @Cara",
			want: []primitive.ObjectID{ana.ID, cara.ID},
		},
		{
			name: "no mentions",
			body: "nothing to see here",
			want: nil,
		},
		{
			name: "unknown name resolves nobody",
			body: "@Zelda where are you",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveMentions(tt.body, directory)
			if len(got) != len(tt.want) {
				t.Fatalf("ResolveMentions() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ResolveMentions()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
