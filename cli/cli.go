package cli

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slipway",
	Short: "Slipway turns a one-line brief into a deployed web app",
	Long:  `Slipway is a CLI tool that plans, generates, publishes and deploys a small web app from a natural-language description.`,
}

var newCmd = &cobra.Command{
	Use:   "new [brief]",
	Short: "Create a project from a brief",
	Run: func(cmd *cobra.Command, args []string) {
		flags, err := parseNewFlags(cmd)
		if err != nil {
			fmt.Printf("Error parsing flags: %v\n", err)
			os.Exit(1)
		}

		model, err := newNewModel(strings.Join(args, " "), flags)
		if err != nil {
			fmt.Printf("Error initializing model: %v\n", err)
			os.Exit(1)
		}

		p := tea.NewProgram(model)
		if _, err := p.Run(); err != nil {
			fmt.Printf("Error running program: %v\n", err)
			os.Exit(1)
		}

		model.Shutdown()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent project runs",
	Run: func(cmd *cobra.Command, args []string) {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			fmt.Printf("Error parsing flags: %v\n", err)
			os.Exit(1)
		}
		if err := runHistory(os.Stdout, limit); err != nil {
			fmt.Printf("Error reading history: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(historyCmd)

	newCmd.Flags().StringP("name", "n", "", "The project name. Overrides the name the planner picks")
	newCmd.Flags().StringP("config", "c", "", "Path to custom configuration file")
	newCmd.Flags().StringP("output", "o", "", "Directory for local copies and archives")
	newCmd.Flags().Bool("zip", false, "Also write the project as a zip archive")

	historyCmd.Flags().IntP("limit", "l", 10, "How many runs to show")
}

func parseNewFlags(cmd *cobra.Command) (newFlags, error) {
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return newFlags{}, err
	}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return newFlags{}, err
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return newFlags{}, err
	}

	zip, err := cmd.Flags().GetBool("zip")
	if err != nil {
		return newFlags{}, err
	}

	return newFlags{
		name:   name,
		config: configPath,
		output: output,
		zip:    zip,
	}, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
