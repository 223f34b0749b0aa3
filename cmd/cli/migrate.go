package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "未適用のマイグレーションを実行する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := app.repo.RunMigrations(app.ctx)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			if len(applied) == 0 {
				fmt.Println("適用するマイグレーションはありません")
				return nil
			}
			for _, file := range applied {
				fmt.Printf("適用しました: %s\n", file)
			}
			return nil
		},
	}
}
