package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskmanager/internal/server"
	"taskmanager/internal/service"
	db "taskmanager/repository/db"
	inmemory "taskmanager/repository/inmemory"

	"github.com/robfig/cron/v3"
)

func main() {
	log.Println("Запуск сервиса задач...")

	cfg := server.ReadConfig()

	var userRepo service.UserRepository
	var taskRepo service.TaskRepository
	var categoryRepo service.CategoryRepository
	var scheduler *cron.Cron

	if err := db.Migration(cfg.DBStr, cfg.MigratePath); err != nil {
		log.Println("[WARN] Ошибка применения миграций, используем память:", err)
		inmem := inmemory.NewStorage()
		userRepo, taskRepo, categoryRepo = inmem, inmem, inmem
	} else {
		log.Println("[SUCCESS] Миграции применены успешно")
		dbStorage, err := db.NewStorage(cfg.DBStr)
		if err != nil {
			log.Println("[WARN] Не удалось подключиться к БД, используем память:", err)
			inmem := inmemory.NewStorage()
			userRepo, taskRepo, categoryRepo = inmem, inmem, inmem
		} else {
			userRepo, taskRepo, categoryRepo = dbStorage, dbStorage, dbStorage

			// Помеченные удалёнными задачи окончательно вычищаются раз в час.
			scheduler = cron.New()
			if _, err := scheduler.AddFunc("@hourly", func() {
				if affected, err := dbStorage.PurgeDeleted(context.Background()); err != nil {
					log.Println("[ERROR] Ошибка при плановой очистке задач:", err)
				} else if affected > 0 {
					log.Println("[SUCCESS] Планово удалено задач:", affected)
				}
			}); err != nil {
				log.Println("[WARN] Не удалось зарегистрировать плановую очистку:", err)
			} else {
				scheduler.Start()
			}
		}
	}

	api := server.NewTaskAPI(userRepo, taskRepo, categoryRepo, cfg)
	if api == nil {
		log.Fatal("[ERROR] Не удалось инициализировать API")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Сервис запущен на %s:%d", cfg.Addr, cfg.Port)
		if err := api.Start(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("[INFO] Получен сигнал %v, начинаем graceful shutdown...", sig)

		if scheduler != nil {
			scheduler.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := api.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ERROR] Ошибка при graceful shutdown: %v", err)
		} else {
			log.Println("[SUCCESS] Graceful shutdown выполнен успешно")
		}

	case err := <-serverErr:
		log.Printf("[ERROR] Ошибка сервера: %v", err)
		if scheduler != nil {
			scheduler.Stop()
		}
	}

	log.Println("Сервис завершен")
}
