package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bookshare/lending/lending"
	"github.com/bookshare/lending/lending/workflow"
)

const (
	flagName          = "name"
	flagEmail         = "email"
	flagPassword      = "password"
	flagPasswordStdin = "password-stdin"
	flagTitle         = "title"
	flagAuthor        = "author"
	flagCondition     = "condition"
	flagGenre         = "genre"
	flagDescription   = "description"
	flagMessage       = "message"
	flagTo            = "to"
	flagFilter        = "filter"
	flagField         = "field"

	filterAll       = "all"
	filterOwned     = "owned"
	filterRequested = "requested"
	filterAvailable = "available"
	filterSearch    = "search"
)

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store.Migrate(cmd.Context()); err != nil {
				return err
			}

			return writeJSON(a.out, map[string]string{"dialect": string(a.store.Dialect()), "status": "migrated"})
		},
	}
}

func (a *app) addUserCommand() *cobra.Command {
	var (
		input         workflow.NewUser
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Register a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input.Password == "" {
				password, err := a.readPassword(passwordStdin)
				if err != nil {
					return err
				}
				input.Password = password
			}

			user, err := a.engine.RegisterUser(cmd.Context(), input)
			if err != nil {
				return err
			}

			return writeJSON(a.out, user)
		},
	}

	cmd.Flags().StringVar(&input.Name, flagName, "", "display name")
	cmd.Flags().StringVar(&input.Email, flagEmail, "", "email address, unique")
	cmd.Flags().StringVar(&input.Password, flagPassword, "", "password (prefer the prompt or --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, flagPasswordStdin, false, "read the password from the first line of stdin")

	return cmd
}

// readPassword reads from stdin when asked to, otherwise prompts on the terminal without echo.
func (a *app) readPassword(fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(a.in).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("%w: reading password from stdin: %w", lending.ErrInvalidInput, err)
		}

		return strings.TrimRight(line, "\r\n"), nil
	}

	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit into int
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: no terminal for the password prompt, use --%s", lending.ErrInvalidInput, flagPasswordStdin)
	}

	_, _ = fmt.Fprint(a.errOut, "Password: ")
	password, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(a.errOut)

	if err != nil {
		return "", errors.Join(lending.ErrInvalidInput, err)
	}

	return string(password), nil
}

func (a *app) addBookCommand() *cobra.Command {
	var input workflow.NewBook

	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Add an unlisted book owned by the caller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerID, err := a.caller()
			if err != nil {
				return err
			}
			input.OwnerID = ownerID

			book, err := a.engine.AddBook(cmd.Context(), input)
			if err != nil {
				return err
			}

			return writeJSON(a.out, book)
		},
	}

	cmd.Flags().StringVar(&input.Title, flagTitle, "", "title")
	cmd.Flags().StringVar(&input.Author, flagAuthor, "", "author")
	cmd.Flags().StringVar(&input.Condition, flagCondition, "", "condition, e.g. good")
	cmd.Flags().StringVar(&input.Genre, flagGenre, "", "genre")
	cmd.Flags().StringVar(&input.Description, flagDescription, "", "free text description")

	return cmd
}

// bookCommand builds a command that takes one book id argument and acts as the caller.
func (a *app) bookCommand(use string, short string, act func(cmd *cobra.Command, target bookTarget) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " BOOK_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := a.resolveTarget(args[0])
			if err != nil {
				return err
			}

			result, err := act(cmd, target)
			if err != nil {
				return err
			}

			return writeJSON(a.out, result)
		},
	}
}

// bookTarget is the book a command acts on and the user it acts for.
type bookTarget struct {
	bookID   uuid.UUID
	callerID uuid.UUID
}

func (a *app) resolveTarget(rawBookID string) (bookTarget, error) {
	bookID, err := parseID("book id", rawBookID)
	if err != nil {
		return bookTarget{}, err
	}

	callerID, err := a.caller()
	if err != nil {
		return bookTarget{}, err
	}

	return bookTarget{bookID: bookID, callerID: callerID}, nil
}

func (a *app) listCommand() *cobra.Command {
	return a.bookCommand("list", "Offer a book for requests", func(cmd *cobra.Command, target bookTarget) (any, error) {
		return a.engine.ListBook(cmd.Context(), target.bookID, target.callerID)
	})
}

func (a *app) delistCommand() *cobra.Command {
	return a.bookCommand("delist", "Withdraw a listed book, cancelling a pending request", func(cmd *cobra.Command, target bookTarget) (any, error) {
		return a.engine.DelistBook(cmd.Context(), target.bookID, target.callerID)
	})
}

func (a *app) rejectCommand() *cobra.Command {
	return a.bookCommand("reject", "Reject the pending request of a book", func(cmd *cobra.Command, target bookTarget) (any, error) {
		return a.engine.RejectRequest(cmd.Context(), target.bookID, target.callerID)
	})
}

func (a *app) deleteCommand() *cobra.Command {
	return a.bookCommand("delete", "Delete a book and its ledger entries", func(cmd *cobra.Command, target bookTarget) (any, error) {
		if err := a.engine.DeleteBook(cmd.Context(), target.bookID, target.callerID); err != nil {
			return nil, err
		}

		return map[string]string{"deleted": target.bookID.String()}, nil
	})
}

func (a *app) requestCommand() *cobra.Command {
	var message string

	cmd := a.bookCommand("request", "Request a listed book", func(cmd *cobra.Command, target bookTarget) (any, error) {
		return a.engine.RequestBook(cmd.Context(), target.bookID, target.callerID, message)
	})
	cmd.Flags().StringVar(&message, flagMessage, "", "message to the owner")

	return cmd
}

func (a *app) grantCommand() *cobra.Command {
	var newOwnerRaw string

	cmd := a.bookCommand("grant", "Grant the pending request and transfer the book", func(cmd *cobra.Command, target bookTarget) (any, error) {
		newOwnerID, err := parseID(flagTo, newOwnerRaw)
		if err != nil {
			return nil, err
		}

		return a.engine.GrantRequest(cmd.Context(), target.bookID, target.callerID, newOwnerID)
	})
	cmd.Flags().StringVar(&newOwnerRaw, flagTo, "", "id of the requester who becomes the owner")

	return cmd
}

func (a *app) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show BOOK_ID",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book id", args[0])
			if err != nil {
				return err
			}

			book, err := a.engine.GetBook(cmd.Context(), bookID)
			if err != nil {
				return err
			}

			return writeJSON(a.out, book)
		},
	}
}

func (a *app) requestsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "requests",
		Short: "Show the caller's incoming requests, pending first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			callerID, err := a.caller()
			if err != nil {
				return err
			}

			entries, err := a.engine.IncomingRequestDetails(cmd.Context(), callerID)
			if err != nil {
				return err
			}

			return writeJSON(a.out, entries)
		},
	}
}

func (a *app) booksCommand() *cobra.Command {
	var filter, field string

	cmd := &cobra.Command{
		Use:   "books [PATTERN]",
		Short: "List books: all, owned, requested, available or search",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			switch filter {
			case filterAll:
				callerID, err := a.caller()
				if err != nil {
					return err
				}

				views, err := a.engine.BrowseBooks(ctx, callerID)
				if err != nil {
					return err
				}

				return writeJSON(a.out, views)

			case filterOwned, filterRequested:
				callerID, err := a.caller()
				if err != nil {
					return err
				}

				var books lending.Books
				if filter == filterOwned {
					books, err = a.engine.BooksOwnedBy(ctx, callerID)
				} else {
					books, err = a.engine.BooksRequestedBy(ctx, callerID)
				}

				if err != nil {
					return err
				}

				return writeJSON(a.out, books)

			case filterAvailable:
				books, err := a.engine.AvailableBooks(ctx)
				if err != nil {
					return err
				}

				return writeJSON(a.out, books)

			case filterSearch:
				if len(args) == 0 {
					return fmt.Errorf("%w: search needs a pattern", lending.ErrInvalidInput)
				}

				books, err := a.engine.SearchBooks(ctx, field, args[0])
				if err != nil {
					return err
				}

				return writeJSON(a.out, books)

			default:
				return fmt.Errorf("%w: unknown filter %q", lending.ErrInvalidInput, filter)
			}
		},
	}

	cmd.Flags().StringVar(&filter, flagFilter, filterAvailable, "all, owned, requested, available or search")
	cmd.Flags().StringVar(&field, flagField, "title", "search field: title, author or genre")

	return cmd
}

func (a *app) auditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check that book requests and ledgers agree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			violations, err := a.engine.AuditInvariants(cmd.Context())
			if err != nil {
				return err
			}

			if writeErr := writeJSON(a.out, violations); writeErr != nil {
				return writeErr
			}

			if len(violations) > 0 {
				return fmt.Errorf("%w: %d violations", lending.ErrInvalidState, len(violations))
			}

			return nil
		},
	}
}
