package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/ebivilapaula/backend/core/child"
	"github.com/ebivilapaula/backend/core/ebi"
	"github.com/ebivilapaula/backend/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	groupNumber int,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FullName:    name,
		Email:       email,
		Role:        role,
		GroupNumber: groupNumber,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateChild(
	t *testing.T,
	repo child.Repository,
	name, guardianName, guardianPhone string,
) child.Child {
	t.Helper()

	tstamp := time.Now().UTC()
	chd := child.Child{
		Name:          name,
		GuardianName:  guardianName,
		GuardianPhone: guardianPhone,
		Guardians: []child.Guardian{
			{Name: guardianName, Phone: guardianPhone},
		},
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	chd, err := repo.CreateChild(context.Background(), chd)
	if err != nil {
		t.Fatalf("CreateChild() failed: %v", err)
	}
	return chd
}

func CreateSession(
	t *testing.T,
	repo ebi.Repository,
	date ebi.Date,
	groupNumber int,
	coordinatorID string,
	collaboratorIDs ...string,
) ebi.Session {
	t.Helper()

	tstamp := time.Now().UTC()
	s := ebi.Session{
		EbiDate:         date,
		GroupNumber:     groupNumber,
		CoordinatorID:   coordinatorID,
		CollaboratorIDs: collaboratorIDs,
		Status:          ebi.StatusOpen,
		CreatedAt:       tstamp,
		UpdatedAt:       tstamp,
	}
	s, err := repo.CreateSession(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return s
}

func CreatePresence(
	t *testing.T,
	repo ebi.Repository,
	sessionID string,
	chd child.Child,
	pin string,
) ebi.Presence {
	t.Helper()

	p := ebi.Presence{
		SessionID:        sessionID,
		ChildID:          chd.ID,
		ChildName:        chd.Name,
		GuardianNameDay:  chd.GuardianName,
		GuardianPhoneDay: chd.GuardianPhone,
		EntryAt:          time.Now().UTC(),
		PinCode:          pin,
	}
	p, err := repo.CreatePresence(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePresence() failed: %v", err)
	}
	return p
}
