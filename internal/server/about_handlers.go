package server

import "github.com/gofiber/fiber/v2"

func (s *Server) AboutAuthor(c *fiber.Ctx) error {
	return s.render(c, "about/author", fiber.Map{"Title": "About the author"})
}

func (s *Server) AboutTech(c *fiber.Ctx) error {
	return s.render(c, "about/tech", fiber.Map{"Title": "Technologies"})
}
