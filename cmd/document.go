package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "document commands",
}

func init() {
	docCmd.AddCommand(createDocumentCommand())
	docCmd.AddCommand(getDocumentCommand())
	docCmd.AddCommand(updateDocumentCommand())
	docCmd.AddCommand(deleteDocumentCommand())
}

func decodeContent(content string) (map[string]any, error) {
	data := make(map[string]any)
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return nil, err
	}
	return data, nil
}

func createDocumentCommand() *cobra.Command {
	var content string
	var class string

	command := &cobra.Command{
		Use:   "create",
		Short: "create a document",
		Run: func(cmd *cobra.Command, args []string) {
			data, err := decodeContent(content)
			if err != nil {
				fmt.Println("error decoding content: ", err)
				return
			}

			engine := newEngine()
			doc, err := engine.CreateDocument(context.Background(), uuid.Nil, class, data)
			if err != nil {
				fmt.Println("error creating document: ", err)
				return
			}

			fmt.Println(doc.Identity().String())
		},
	}

	command.Flags().StringVarP(&content, "content", "c", "{}", "document content as JSON")
	command.Flags().StringVarP(&class, "class", "k", "record", "document class")

	return command
}

func getDocumentCommand() *cobra.Command {
	var docID string

	command := &cobra.Command{
		Use:   "get",
		Short: "get a document",
		Run: func(cmd *cobra.Command, args []string) {
			id, err := uuid.Parse(docID)
			if err != nil {
				fmt.Println("missing or invalid: --document")
				return
			}

			engine := newEngine()
			doc, err := engine.GetDocument(context.Background(), id)
			if err != nil {
				fmt.Println("error getting document: ", err)
				return
			}

			data, err := doc.Data()
			if err != nil {
				fmt.Println("error decoding document: ", err)
				return
			}

			buf, _ := json.MarshalIndent(data, "", "  ")
			fmt.Println(string(buf))
		},
	}

	command.Flags().StringVarP(&docID, "document", "d", "", "document id")

	return command
}

func updateDocumentCommand() *cobra.Command {
	var docID string
	var content string

	command := &cobra.Command{
		Use:   "update",
		Short: "update a document",
		Run: func(cmd *cobra.Command, args []string) {
			id, err := uuid.Parse(docID)
			if err != nil {
				fmt.Println("missing or invalid: --document")
				return
			}

			data, err := decodeContent(content)
			if err != nil {
				fmt.Println("error decoding content: ", err)
				return
			}

			engine := newEngine()
			if _, err := engine.UpdateDocument(context.Background(), id, data); err != nil {
				fmt.Println("error updating document: ", err)
			}
		},
	}

	command.Flags().StringVarP(&docID, "document", "d", "", "document id")
	command.Flags().StringVarP(&content, "content", "c", "{}", "document content as JSON")

	return command
}

func deleteDocumentCommand() *cobra.Command {
	var docID string

	command := &cobra.Command{
		Use:   "delete",
		Short: "delete a document",
		Run: func(cmd *cobra.Command, args []string) {
			id, err := uuid.Parse(docID)
			if err != nil {
				fmt.Println("missing or invalid: --document")
				return
			}

			engine := newEngine()
			if err := engine.DeleteDocument(context.Background(), id); err != nil {
				fmt.Println("error deleting document: ", err)
			}
		},
	}

	command.Flags().StringVarP(&docID, "document", "d", "", "document id")

	return command
}
