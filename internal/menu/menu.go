// internal/menu/menu.go
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bookstore/internal/catalog"
	"bookstore/internal/ordering"
)

var sortLabels = map[catalog.SortKey]string{
	catalog.SortByID:    "ID",
	catalog.SortByTitle: "Title",
	catalog.SortByPrice: "Price",
}

// Menu is the numbered, line-oriented operator console.
type Menu struct {
	in     *bufio.Scanner
	out    io.Writer
	books  catalog.Service
	orders ordering.Service
	log    *zap.Logger
}

func New(in io.Reader, out io.Writer, books catalog.Service, orders ordering.Service, log *zap.Logger) *Menu {
	return &Menu{
		in:     bufio.NewScanner(in),
		out:    out,
		books:  books,
		orders: orders,
		log:    log,
	}
}

// Run shows the main menu until the operator exits or input ends.
func (m *Menu) Run(ctx context.Context) error {
	for {
		m.println("\n===== ONLINE BOOKSTORE SYSTEM =====")
		m.println("1. Display all books")
		m.println("2. Add a new book")
		m.println("3. Search for a book")
		m.println("4. Sort books")
		m.println("5. Place an order")
		m.println("6. Process next order")
		m.println("7. Display order queue")
		m.println("8. Display processed orders")
		m.println("9. Exit")

		choice, err := m.promptInt("Enter your choice: ")
		if errors.Is(err, io.EOF) {
			return m.in.Err()
		}
		if err != nil {
			m.println("Please enter a valid number!")
			continue
		}

		switch choice {
		case 1:
			err = m.displayBooks(ctx)
		case 2:
			err = m.addBook(ctx)
		case 3:
			err = m.search(ctx)
		case 4:
			err = m.sort(ctx)
		case 5:
			err = m.placeOrder(ctx)
		case 6:
			err = m.processNext(ctx)
		case 7:
			err = m.displayPending(ctx)
		case 8:
			err = m.displayProcessed(ctx)
		case 9:
			m.println("Thank you for using the Bookstore System. Goodbye!")
			return nil
		default:
			m.println("Invalid choice. Please try again.")
		}

		if errors.Is(err, io.EOF) {
			return m.in.Err()
		}
		if err != nil {
			m.log.Error("menu action failed", zap.Int("choice", choice), zap.Error(err))
			m.printf("Error: %v\n", err)
		}
	}
}

func (m *Menu) displayBooks(ctx context.Context) error {
	m.println("\n===== BOOK LIST =====")
	books, err := m.books.List(ctx)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		m.println("No books available.")
		return nil
	}
	for _, b := range books {
		m.println(b.String())
	}
	return nil
}

func (m *Menu) addBook(ctx context.Context) error {
	m.println("\n===== ADD NEW BOOK =====")

	id, err := m.promptInt("Enter book ID: ")
	if errors.Is(err, io.EOF) {
		return err
	}
	if err != nil {
		m.println("Invalid ID format. Operation cancelled.")
		return nil
	}
	if _, err := m.books.FindByID(ctx, id); err == nil {
		m.println("A book with this ID already exists!")
		return nil
	}

	title, err := m.prompt("Enter title: ")
	if err != nil {
		return err
	}
	author, err := m.prompt("Enter author: ")
	if err != nil {
		return err
	}
	raw, err := m.prompt("Enter price: $")
	if err != nil {
		return err
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		m.println("Invalid price format. Operation cancelled.")
		return nil
	}

	_, err = m.books.AddBook(ctx, id, title, author, price)
	switch {
	case errors.Is(err, catalog.ErrInvalidPrice):
		m.println("Price must be positive. Operation cancelled.")
	case errors.Is(err, catalog.ErrDuplicateID):
		m.println("A book with this ID already exists!")
	case err != nil:
		return err
	default:
		m.println("Book added successfully!")
	}
	return nil
}

func (m *Menu) search(ctx context.Context) error {
	m.println("\n===== SEARCH BOOK =====")
	m.println("1. Search by ID")
	m.println("2. Search by Title")

	choice, err := m.promptInt("Enter your choice: ")
	if errors.Is(err, io.EOF) {
		return err
	}
	if err != nil {
		m.println("Invalid choice. Search cancelled.")
		return nil
	}

	switch choice {
	case 1:
		id, err := m.promptInt("Enter book ID: ")
		if errors.Is(err, io.EOF) {
			return err
		}
		if err != nil {
			m.println("Invalid ID format.")
			return nil
		}
		book, err := m.books.FindByID(ctx, id)
		if errors.Is(err, catalog.ErrNotFound) {
			m.printf("No book found with ID: %d\n", id)
			return nil
		}
		if err != nil {
			return err
		}
		m.printf("Book found: %s\n", book)
	case 2:
		text, err := m.prompt("Enter title (or part of title): ")
		if err != nil {
			return err
		}
		books, err := m.books.FindByTitle(ctx, text)
		if err != nil {
			return err
		}
		if len(books) == 0 {
			m.printf("No books found with title containing: %s\n", strings.ToLower(text))
			return nil
		}
		for _, b := range books {
			m.printf("Book found: %s\n", b)
		}
	default:
		m.println("Invalid choice.")
	}
	return nil
}

func (m *Menu) sort(ctx context.Context) error {
	m.println("\n===== SORT BOOKS =====")
	m.println("1. Sort by ID")
	m.println("2. Sort by Title")
	m.println("3. Sort by Price")

	choice, err := m.promptInt("Enter your choice: ")
	if errors.Is(err, io.EOF) {
		return err
	}
	if err != nil {
		m.println("Invalid choice. Sort cancelled.")
		return nil
	}

	key := catalog.SortKey(choice)
	if err := m.books.SortBy(ctx, key); errors.Is(err, catalog.ErrInvalidSortKey) {
		m.println("Invalid choice.")
		return nil
	} else if err != nil {
		return err
	}

	m.printf("Books sorted by %s.\n", sortLabels[key])
	return m.displayBooks(ctx)
}

func (m *Menu) placeOrder(ctx context.Context) error {
	m.println("\n===== PLACE ORDER =====")

	books, err := m.books.List(ctx)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		m.println("No books available to order.")
		return nil
	}

	customer, err := m.prompt("Enter customer name: ")
	if err != nil {
		return err
	}
	address, err := m.prompt("Enter shipping address: ")
	if err != nil {
		return err
	}

	var selections []ordering.Selection
	for {
		if err := m.displayBooks(ctx); err != nil {
			return err
		}

		id, err := m.promptInt("\nEnter book ID to add to order (0 to finish): ")
		if errors.Is(err, io.EOF) {
			return err
		}
		if err != nil {
			m.println("Invalid ID format.")
			continue
		}
		if id == 0 {
			break
		}

		book, err := m.books.FindByID(ctx, id)
		if errors.Is(err, catalog.ErrNotFound) {
			m.println("Book not found!")
			continue
		}
		if err != nil {
			return err
		}

		qty, err := m.promptInt("Enter quantity: ")
		if errors.Is(err, io.EOF) {
			return err
		}
		if err != nil {
			m.println("Invalid quantity format.")
			continue
		}
		if qty <= 0 {
			m.println("Quantity must be positive.")
			continue
		}

		selections = append(selections, ordering.Selection{BookID: id, Quantity: qty})
		m.printf("%s added to order.\n", book.Title)
	}

	placement, err := m.orders.PlaceOrder(ctx, customer, address, selections)
	if err != nil && !errors.Is(err, ordering.ErrNoItems) {
		return err
	}
	for _, r := range placement.Rejected {
		m.printf("Skipped book %d x%d: %v\n", r.BookID, r.Quantity, r.Err)
	}
	if err != nil {
		m.println("Order cancelled - no books selected.")
		return nil
	}

	order := placement.Order
	m.println("Order placed successfully!")
	m.printf("Order ID: %d\n", order.ID)
	m.printLines(order)
	m.printf("Total: $%s\n", order.Total().StringFixed(2))
	return nil
}

func (m *Menu) processNext(ctx context.Context) error {
	m.println("\n===== PROCESS NEXT ORDER =====")

	order, err := m.orders.ProcessNextOrder(ctx)
	if errors.Is(err, ordering.ErrNoPendingOrders) {
		m.println("No orders to process.")
		return nil
	}
	if err != nil {
		return err
	}

	m.printf("Processing Order ID: %d\n", order.ID)
	m.printf("Customer: %s\n", order.CustomerName)
	m.printf("Address: %s\n", order.Address)
	m.printLines(order)
	m.printf("Total: $%s\n", order.Total().StringFixed(2))
	m.println("Order processed successfully!")
	return nil
}

func (m *Menu) displayPending(ctx context.Context) error {
	m.println("\n===== ORDER QUEUE =====")
	orders, err := m.orders.ListPending(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		m.println("No orders in queue.")
		return nil
	}
	m.printOrders(orders)
	return nil
}

func (m *Menu) displayProcessed(ctx context.Context) error {
	m.println("\n===== PROCESSED ORDERS =====")
	orders, err := m.orders.ListProcessed(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		m.println("No processed orders.")
		return nil
	}
	m.printOrders(orders)
	return nil
}

func (m *Menu) printOrders(orders []*ordering.Order) {
	for i, order := range orders {
		m.printf("\nOrder #%d:\n", i+1)
		m.printf("ID: %d\n", order.ID)
		m.printf("Customer: %s\n", order.CustomerName)
		m.printLines(order)
		m.printf("Status: %s\n", order.Status)
		m.printf("Total: $%s\n", order.Total().StringFixed(2))
	}
}

func (m *Menu) printLines(order *ordering.Order) {
	m.println("Items:")
	for _, line := range order.Lines() {
		m.printf("- %s x%d ($%s)\n", line.Book.Title, line.Quantity, line.Total().StringFixed(2))
	}
}

// prompt writes label and reads one line. It returns io.EOF once no more
// lines can be read; Run reports the underlying scanner error, if any.
func (m *Menu) prompt(label string) (string, error) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		return "", io.EOF
	}
	return strings.TrimSpace(m.in.Text()), nil
}

func (m *Menu) promptInt(label string) (int, error) {
	line, err := m.prompt(label)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(line)
}

func (m *Menu) println(s string) {
	fmt.Fprintln(m.out, s)
}

func (m *Menu) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}
