// Command seeder loads a development catalog: products, a demo coupon
// set and the default installment settings row.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	seedProducts(ctx, pool)
	seedCoupons(ctx, pool)
	seedSettings(ctx, pool)

	log.Println("seeding completed")
}

type productSeed struct {
	Slug        string
	Title       string
	Description string
	Category    string
	PriceCents  int64
	StockQty    int32
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) {
	products := []productSeed{
		{"smart-tv-50-4k", "Smart TV 50\" 4K UHD", "Painel LED 4K com HDR10 e sistema Android TV.", "tv", 239_900, 35},
		{"smart-tv-65-oled", "Smart TV 65\" OLED", "Painel OLED com 120Hz e Dolby Vision.", "tv", 699_900, 12},
		{"geladeira-frost-free-410l", "Geladeira Frost Free 410L", "Duplex frost free com freezer inferior e painel digital.", "refrigerador", 349_900, 20},
		{"lavadora-12kg", "Lavadora de Roupas 12kg", "Lavadora top load com 16 programas de lavagem.", "lavanderia", 219_900, 18},
		{"micro-ondas-32l", "Micro-ondas 32L Inox", "Micro-ondas espelhado com menu descongelar.", "cozinha", 64_900, 50},
		{"ar-condicionado-split-12000", "Ar-Condicionado Split 12.000 BTUs", "Split inverter frio com gas R-32.", "climatizacao", 259_900, 25},
		{"notebook-core-i5", "Notebook Core i5 16GB 512GB", "Tela 15.6\" FHD, SSD NVMe e teclado ABNT2.", "informatica", 329_900, 30},
		{"smartphone-128gb", "Smartphone 128GB 5G", "Tela AMOLED 6.5\", camera tripla de 64MP.", "celulares", 189_900, 60},
		{"fogao-5-bocas", "Fogao 5 Bocas Inox", "Mesa de vidro, acendimento automatico e forno duplo.", "cozinha", 159_900, 22},
		{"soundbar-320w", "Soundbar 320W Bluetooth", "Soundbar 2.1 com subwoofer sem fio.", "audio", 89_900, 40},
	}

	log.Println("seeding products...")
	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (slug, title, description, category, price_cents, stock_qty, active)
			VALUES ($1, $2, $3, $4, $5, $6, true)
			ON CONFLICT (slug) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				category = EXCLUDED.category,
				price_cents = EXCLUDED.price_cents,
				stock_qty = EXCLUDED.stock_qty,
				active = true,
				updated_at = now()`,
			p.Slug, p.Title, p.Description, p.Category, p.PriceCents, p.StockQty)
		if err != nil {
			log.Fatalf("seed product %s: %v", p.Slug, err)
		}
	}
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("seeding coupons...")
	coupons := []struct {
		Code             string
		Type             string
		Percent          float64
		AmountCents      int64
		MinPurchaseCents int64
	}{
		{"BEMVINDO10", "percentage", 10, 0, 10_000},
		{"FRETE50", "fixed", 0, 5_000, 50_000},
		{"ELETRO15", "percentage", 15, 0, 200_000},
	}
	for _, c := range coupons {
		_, err := pool.Exec(ctx, `
			INSERT INTO coupons (code, type, percent, amount_cents, min_purchase_cents, active)
			VALUES ($1, $2, $3, $4, $5, true)
			ON CONFLICT (code) DO UPDATE SET
				type = EXCLUDED.type,
				percent = EXCLUDED.percent,
				amount_cents = EXCLUDED.amount_cents,
				min_purchase_cents = EXCLUDED.min_purchase_cents,
				active = true,
				updated_at = now()`,
			c.Code, c.Type, c.Percent, c.AmountCents, c.MinPurchaseCents)
		if err != nil {
			log.Fatalf("seed coupon %s: %v", c.Code, err)
		}
	}
}

func seedSettings(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("seeding installment settings...")
	_, err := pool.Exec(ctx, `
		INSERT INTO installment_settings
			(id, max_installments, monthly_rate_percent, min_purchase_cents, enabled,
			 rate_floor_percent, rate_step_percent, rate_threshold_percent)
		VALUES (1, 12, 1.99, 10000, true, 1.25, 0.05, 10)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		log.Fatalf("seed settings: %v", err)
	}
}
