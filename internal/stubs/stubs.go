package stubs

import (
	"time"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

var Users = []models.User{
	{ID: "u1", UserName: "alice", DisplayName: "Alice", AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=Alice"},
	{ID: "u2", UserName: "bob", DisplayName: "Bob", AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=Bob"},
	{ID: "u3", UserName: "charlie", DisplayName: "Charlie", AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=Charlie"},
}

var Rooms = []models.Room{
	{ID: "lounge", Name: "Lounge", MemberCount: 3},
	{ID: "dm_u1_u2", Name: "Alice", MemberCount: 2, IsDM: true},
}

var Messages = []models.Message{
	{ID: "m1", RoomID: "lounge", SenderID: "u1", Content: "Hello everyone!", Type: models.MessageTypeText, CreatedAt: time.Now().Add(-10 * time.Minute)},
	{ID: "m2", RoomID: "lounge", SenderID: "u2", Content: "Hi Alice!", Type: models.MessageTypeText, CreatedAt: time.Now().Add(-9 * time.Minute)},
	{ID: "m3", RoomID: "lounge", SenderID: "u3", Content: "Morning all", Type: models.MessageTypeText, CreatedAt: time.Now().Add(-5 * time.Minute)},
}

var Posts = []models.Post{
	{ID: "p1", AuthorID: "u1", Body: "First post from Alice", LikeCount: 2, CommentCount: 1, CreatedAt: time.Now().Add(-2 * time.Hour)},
	{ID: "p2", AuthorID: "u2", Body: "Bob was here", LikeCount: 10, CommentCount: 0, CreatedAt: time.Now().Add(-1 * time.Hour)},
}

var Comments = []models.Comment{
	{ID: "c1", PostID: "p1", AuthorID: "u2", Body: "Nice one", CreatedAt: time.Now().Add(-90 * time.Minute)},
}
