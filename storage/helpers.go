package storage

import (
	"slices"
	"strings"

	"github.com/doorman-auth/doorman/storage/model"
)

func sortByUsername(users []model.UserRecord) {
	slices.SortFunc(
		users, func(a, b model.UserRecord) int {
			return strings.Compare(a.Username, b.Username)
		},
	)
}

// Usernames returns the usernames of all users in the store
func Usernames(store model.UsersStore) ([]string, error) {
	users, err := store.List()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	return names, nil
}
