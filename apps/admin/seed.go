package main

import (
	"context"
	"fmt"

	"github.com/ebivilapaula/backend/core/child"
	"github.com/ebivilapaula/backend/core/user"
)

type seedUser struct {
	name  string
	email string
	role  string
	group int
}

var (
	seedUsers = []seedUser{
		{name: "Administradora EBI", email: "admin@ebivilapaula.br", role: user.RoleAdministrator, group: 1},
		{name: "Coordenadora Grupo 1", email: "coord1@ebivilapaula.br", role: user.RoleCoordinator, group: 1},
		{name: "Coordenadora Grupo 2", email: "coord2@ebivilapaula.br", role: user.RoleCoordinator, group: 2},
		{name: "Colaboradora Grupo 1", email: "colab1@ebivilapaula.br", role: user.RoleCollaborator, group: 1},
		{name: "Colaboradora Grupo 2", email: "colab2@ebivilapaula.br", role: user.RoleCollaborator, group: 2},
	}

	seedChildren = []child.Child{
		{
			Name:          "Maria Souza",
			GuardianName:  "Joana Souza",
			GuardianPhone: "+55 11 91234-0001",
			Guardians: []child.Guardian{
				{Name: "Joana Souza", Phone: "+55 11 91234-0001"},
				{Name: "Carlos Souza", Phone: "+55 11 91234-0002"},
			},
		},
		{
			Name:          "Pedro Lima",
			GuardianName:  "Carla Lima",
			GuardianPhone: "+55 11 91234-0003",
			Guardians: []child.Guardian{
				{Name: "Carla Lima", Phone: "+55 11 91234-0003"},
			},
		},
	}
)

// seed loads development fixtures. Existing records are left alone so it
// can be re-run safely.
func (cli *commandLine) seed(pwd string) error {
	ctx := context.Background()

	for _, su := range seedUsers {
		if _, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: su.email}); err == nil {
			continue
		} else if err != user.ErrNotFound {
			return err
		}

		usr := user.User{
			FullName:    su.name,
			Email:       su.email,
			Role:        su.role,
			GroupNumber: su.group,
		}
		if err := usr.SetPassword(pwd); err != nil {
			return err
		}
		if _, err := cli.usrRepo.CreateUser(ctx, usr); err != nil {
			return err
		}
		fmt.Printf("created user %s (%s)\n", su.email, su.role)
	}

	filter := &child.QueryFilter{}
	filter.Clean()
	_, total, err := cli.chdRepo.QueryChildren(ctx, filter)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}
	for _, chd := range seedChildren {
		if _, err := cli.chdRepo.CreateChild(ctx, chd); err != nil {
			return err
		}
		fmt.Printf("created child %s\n", chd.Name)
	}
	return nil
}
