package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/dengelma9898/sharelocal-go/chat"
	"github.com/dengelma9898/sharelocal-go/controllers"
	"github.com/dengelma9898/sharelocal-go/crypto"
	"github.com/dengelma9898/sharelocal-go/database"
	"github.com/dengelma9898/sharelocal-go/helpers"
	"github.com/dengelma9898/sharelocal-go/routes"
)

func main() {
	log.Println("🔍 [main] Starting application...")

	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️ [main] No .env file found, relying on process environment")
	}

	database.InitDB()
	log.Println("✅ [main] MongoDB initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureChatIndexes(ctx); err != nil {
		log.Fatalf("❌ [main] Failed to create chat indexes: %v", err)
	}
	log.Println("✅ [main] Chat indexes ensured")

	// The encryption engine refuses to start without usable key material;
	// serving chat traffic with a placeholder key is worse than not
	// serving at all.
	production := gin.Mode() == gin.ReleaseMode
	engine, err := crypto.NewEngine(os.Getenv("CHAT_ENCRYPTION_KEY"), production)
	if err != nil {
		log.Fatalf("❌ [main] %v", err)
	}
	log.Println("✅ [main] Encryption engine ready")

	helpers.InitTokenHelper()
	controllers.InitUserController()
	controllers.InitListingController()

	conversations := database.OpenCollection(database.Client, "conversations")
	participants := database.OpenCollection(database.Client, "participants")
	messages := database.OpenCollection(database.Client, "messages")
	users := chat.NewMongoUserDirectory(database.OpenCollection(database.Client, "users"))
	listings := chat.NewMongoListingDirectory(database.OpenCollection(database.Client, "listings"))

	store := chat.NewStore(messages, conversations, participants, engine)
	directory := chat.NewDirectory(conversations, participants, store, users, listings)
	chatService := chat.NewService(directory, store, users, listings)
	controllers.InitChatController(chatService)
	log.Println("✅ [main] Chat service wired")

	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.UserRoute(router)
	routes.AuthRoute(router)
	routes.ListingRoute(router)
	routes.ChatRoute(router)
	log.Println("✅ [main] Routes registered")

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	log.Println("🚀 [main] Server running on port", port)
	router.Run(":" + port)
}
