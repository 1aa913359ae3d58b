package main

import (
	"context"
	"fmt"

	"foodshare/internal/foodapi"
	"foodshare/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var foodsCommand = &cli.Command{
	Name:  "foods",
	Usage: "Print foods from the food API",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "status",
			Usage: "Only foods with this status (Available or Donated)",
		},
		&cli.StringFlag{
			Name:  "id",
			Usage: "Print a single food",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		d := &deps{config: cfg, logger: logrus.StandardLogger()}
		client, err := d.foodClient(nil)
		if err != nil {
			return err
		}

		ctx := context.Background()

		if id := c.String("id"); id != "" {
			food, err := client.GetFood(ctx, id)
			if err != nil {
				return err
			}
			pp.Println(food)
			return nil
		}

		status := types.FoodStatus(c.String("status"))
		if status != "" && !status.Valid() {
			return types.ErrInvalidStatus
		}

		foods, err := client.ListFoods(ctx, foodapi.ListFoodsOptions{Status: status}, nil)
		if err != nil {
			return err
		}

		pp.Println(foods)
		fmt.Printf("%d foods\n", len(foods))
		return nil
	},
}
