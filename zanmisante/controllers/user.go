package controllers

import (
	"context"

	"zanmisante/zanmisante/sources/psql/dao"
	"zanmisante/zanmisante/sources/psql/models"
)

type UserController struct {
	dao *dao.UserDAO
}

func NewUserController(dao *dao.UserDAO) *UserController {
	return &UserController{dao: dao}
}

func (c *UserController) GetUser(ctx context.Context, id int) (*models.User, error) {
	return c.dao.GetUserByID(ctx, id)
}

func (c *UserController) UpdateUser(ctx context.Context, id int, email string, fullName, imageURL *string) (*models.User, error) {
	user, err := c.dao.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, dao.ErrNotFound
	}
	if email != "" {
		user.Email = email
	}
	if fullName != nil {
		user.FullName = fullName
	}
	if imageURL != nil {
		user.ImageURL = imageURL
	}
	if err := c.dao.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
