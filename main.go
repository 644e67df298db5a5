package main

import (
	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/routes"
	"github.com/cppla/blogicum/storage"
	"github.com/cppla/blogicum/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(&models.User{}, &models.Category{}, &models.Location{}, &models.Post{}, &models.Comment{}, &models.UploadedImage{})

	images, err := storage.New(cfg)
	if err != nil {
		utils.Sugar.Fatalf("image store: %v", err)
	}

	r := routes.SetupRouter(db, images)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
